package rill

import "time"

// Rotate compares the previously observed Database.ts to now at each of the
// three granularities (hour, day, month) and performs that tier's
// promotion for every granularity whose bucket index changed. Hourly runs
// first, then daily, then monthly, since each coarser tier consumes the
// finer one's output.
//
// On success db.ts is advanced to now. On failure, db.ts is left
// unadvanced, but whichever tiers already promoted before the failing step
// keep their side effects: retrying at the next Rotate is idempotent at
// the hourly level (dump is already empty) and tolerates pre-existing
// daily/monthly output files from a partially-failed previous attempt.
func (db *Database) Rotate(now Ts) bool {
	start := time.Now()
	ok := db.rotate(now)
	if db.opts.Metrics != nil {
		db.opts.Metrics.RotateDone(ok, time.Since(start).Seconds())
	}
	return ok
}

func (db *Database) rotate(now Ts) bool {
	log := db.opts.Logger

	if uint64(now)/uint64(Hour) != uint64(db.ts)/uint64(Hour) {
		if err := db.rotateHourly(now); err != nil {
			log.Error().Err(err).Msg("hourly rotation failed")
			return false
		}
	}

	if uint64(now)/uint64(Day) != uint64(db.ts)/uint64(Day) {
		if err := db.rotateDaily(); err != nil {
			log.Error().Err(err).Msg("daily rotation failed")
			return false
		}
	}

	if uint64(now)/uint64(Month) != uint64(db.ts)/uint64(Month) {
		if err := db.rotateMonthly(); err != nil {
			log.Error().Err(err).Msg("monthly rotation failed")
			return false
		}
	}

	db.ts = now
	db.refreshLiveStoreMetrics()
	return true
}

// rotateHourly swaps acc/dump under the lock (the only suspension point
// Ingest can ever collide with), then off-lock compacts dump and, if it
// holds anything, writes it as a new hourly store installed at
// hourly[(now/hour) mod 24]. The slot is addressed by now but the file's
// ts is the pre-rotation db.ts: the store just finalized covers the hour
// that just ended, filed under the hour that just began.
func (db *Database) rotateHourly(now Ts) error {
	db.mu.Lock()
	db.acc, db.dump = db.dump, db.acc
	db.mu.Unlock()

	db.dump.Compact()
	if db.dump.Len() > 0 {
		path := hourlyPath(db.dir, db.ts)
		if err := WriteStore(path, db.ts, Hour, db.dump); err != nil {
			return err
		}
		st, err := OpenStore(path)
		if err != nil {
			return err
		}
		i := slot(now, Hour, hours)
		db.expireOccupant(&db.hourly[i], "hourly", i)
		db.hourly[i] = st
	}
	db.dump.Clear()
	return nil
}

// rotateDaily merges every live hourly store into a new daily store and
// unlinks the sources. Slot is (db.ts / day) mod 30, the day that just
// closed. Note the asymmetry with rotateHourly, which slots by now: the
// daily store carries the day being finalized, not the day beginning.
func (db *Database) rotateDaily() error {
	i := slot(db.ts, Day, days)
	db.expireOccupant(&db.daily[i], "daily", i)

	if allNil(db.hourly[:]) {
		return nil
	}

	path := dailyPath(db.dir, db.ts)
	if err := Merge(path, db.ts, Day, db.hourly[:]); err != nil {
		return err
	}
	st, err := OpenStore(path)
	if err != nil {
		return err
	}
	db.daily[i] = st

	for j := range db.hourly {
		if db.hourly[j] == nil {
			continue
		}
		if err := db.hourly[j].Remove(); err != nil {
			db.opts.Logger.Warn().Err(err).Msg("failed to unlink merged hourly store")
		}
		db.hourly[j] = nil
	}
	return nil
}

// rotateMonthly is rotateDaily's symmetric at the next tier: slot
// (db.ts / month) mod 13, merging every live daily store and unlinking the
// sources.
func (db *Database) rotateMonthly() error {
	i := slot(db.ts, Month, months)
	db.expireOccupant(&db.monthly[i], "monthly", i)

	if allNil(db.daily[:]) {
		return nil
	}

	path := monthlyPath(db.dir, db.ts)
	if err := Merge(path, db.ts, Month, db.daily[:]); err != nil {
		return err
	}
	st, err := OpenStore(path)
	if err != nil {
		return err
	}
	db.monthly[i] = st

	for j := range db.daily {
		if db.daily[j] == nil {
			continue
		}
		if err := db.daily[j].Remove(); err != nil {
			db.opts.Logger.Warn().Err(err).Msg("failed to unlink merged daily store")
		}
		db.daily[j] = nil
	}
	return nil
}

// expireOccupant unlinks and clears *slot if it holds a store. Clock jumps
// and ring wraparound are handled the same way at every tier: an occupied
// target slot means its occupant has aged out, so it is expired rather
// than treated as a fatal precondition failure.
func (db *Database) expireOccupant(slotPtr **Store, tier string, idx int) {
	if *slotPtr == nil {
		return
	}
	db.opts.Logger.Warn().Str("tier", tier).Int("slot", idx).Msg("expiring ring occupant")
	if err := (*slotPtr).Remove(); err != nil {
		db.opts.Logger.Warn().Err(err).Msg("failed to unlink expired store")
	}
	*slotPtr = nil
}

func allNil(ring []*Store) bool {
	for _, s := range ring {
		if s != nil {
			return false
		}
	}
	return true
}
