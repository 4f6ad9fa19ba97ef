package store

import (
	"log/slog"
	"sort"

	"github.com/imskit/imstore/param"
)

// migrateLegacyToModern backfills the modern entity-attribute-value tables
// from a first-generation container. It runs once, on writer-session open,
// when legacy tables exist but modern tables do not.
//
// Every legacy value flows through the modern ParamStore's normal insert
// path with mirroring disabled, so the backfill cannot loop back into the
// legacy tables it is reading. The caller creates the modern tables first
// and forces a flush afterwards so the migration is durable before any new
// writes land.
func migrateLegacyToModern(ps *ParamStore, r *Reader, mirror *LegacyMirror, logger *slog.Logger) error {
	wasEnabled := mirror.Enabled()
	mirror.setEnabled(false)
	defer mirror.setEnabled(wasEnabled)

	globals, err := r.legacyGlobalValues()
	if err != nil {
		return err
	}

	globalKeys := make([]int, 0, len(globals))
	for key := range globals {
		globalKeys = append(globalKeys, int(key))
	}
	sort.Ints(globalKeys)

	for _, key := range globalKeys {
		k := param.GlobalKey(key)
		if err := ps.AddUpdateGlobalParam(k, globals[k]); err != nil {
			return err
		}
	}

	frames, err := r.legacyFrameNums()
	if err != nil {
		return err
	}

	for _, frameNum := range frames {
		values, err := r.legacyFrameValues(frameNum)
		if err != nil {
			return err
		}

		frameKeys := make([]int, 0, len(values))
		for key := range values {
			frameKeys = append(frameKeys, int(key))
		}
		sort.Ints(frameKeys)

		for _, key := range frameKeys {
			k := param.FrameKey(key)
			if err := ps.AddUpdateFrameParam(frameNum, k, values[k]); err != nil {
				return err
			}
		}
	}

	logger.Info("migrated legacy container to modern schema",
		"globalParams", len(globals), "frames", len(frames))

	return nil
}

// migrateModernToLegacy backfills the legacy tables from the modern store.
// It runs when mirroring is requested on a container that has modern tables
// but no legacy tables yet; after it completes, ongoing dual-writes keep the
// two in sync.
func migrateModernToLegacy(r *Reader, mirror *LegacyMirror, logger *slog.Logger) error {
	globals, err := r.GlobalParams()
	if err != nil {
		return err
	}

	globalKeys := make([]int, 0, len(globals))
	for key := range globals {
		globalKeys = append(globalKeys, int(key))
	}
	sort.Ints(globalKeys)

	for _, key := range globalKeys {
		k := param.GlobalKey(key)
		if err := mirror.MirrorGlobal(k, globals[k]); err != nil {
			return err
		}
	}

	frames, err := r.MasterFrameList()
	if err != nil {
		return err
	}

	for _, frameNum := range frames {
		values, err := r.FrameParams(frameNum)
		if err != nil {
			return err
		}

		frameKeys := make([]int, 0, len(values))
		for key := range values {
			frameKeys = append(frameKeys, int(key))
		}
		sort.Ints(frameKeys)

		for _, key := range frameKeys {
			k := param.FrameKey(key)
			if err := mirror.MirrorFrame(frameNum, k, values[k]); err != nil {
				return err
			}
		}
	}

	logger.Info("backfilled legacy tables from modern schema",
		"globalParams", len(globals), "frames", len(frames))

	return nil
}
