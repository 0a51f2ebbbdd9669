package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func f(v float64) *float64 { return &v }

func TestReadingRepository(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS readings (
		id BIGINT PRIMARY KEY,
		equipment_id BIGINT NOT NULL,
		reading_date TIMESTAMP NOT NULL,
		hour_meter REAL,
		odometer REAL,
		prev_hour_meter REAL,
		prev_odometer REAL,
		value REAL,
		operator TEXT NOT NULL DEFAULT '',
		observation TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'db_reading',
		photo_urls TEXT,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)

	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	base := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	newReading := func(equipmentID snowflake.ID, date, createdAt time.Time) *readingdomain.Reading {
		return &readingdomain.Reading{
			ID:          node.Generate(),
			EquipmentID: equipmentID,
			ReadingDate: date,
			Source:      readingdomain.SourceDBReading,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
	}

	t.Run("InsertAndFindByID", func(t *testing.T) {
		equipmentID := node.Generate()
		record := newReading(equipmentID, base, base.Add(8*time.Hour))
		record.HourMeter = f(120.5)
		record.Operator = "J. Quispe"
		record.PhotoURLs = []string{"https://files.local/r/1.jpg"}

		assert.NoError(t, repo.Insert(ctx, db, record))

		found, err := repo.FindByID(ctx, db, record.ID)
		assert.NoError(t, err)
		if assert.NotNil(t, found) {
			assert.Equal(t, record.ID, found.ID)
			assert.Equal(t, equipmentID, found.EquipmentID)
			assert.Equal(t, 120.5, *found.HourMeter)
			assert.Nil(t, found.Odometer)
			assert.Equal(t, "J. Quispe", found.Operator)
			assert.Equal(t, readingdomain.SourceDBReading, found.Source)
			assert.Equal(t, []string{"https://files.local/r/1.jpg"}, []string(found.PhotoURLs))
		}
	})

	t.Run("FindByIDMissingIsNil", func(t *testing.T) {
		found, err := repo.FindByID(ctx, db, node.Generate())
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("FindLatestOrdersByDateThenCreatedAt", func(t *testing.T) {
		equipmentID := node.Generate()
		old := newReading(equipmentID, base, base.Add(10*time.Hour))
		// Entered later in the day but for the newer date.
		early := newReading(equipmentID, base.AddDate(0, 0, 1), base.Add(9*time.Hour))
		late := newReading(equipmentID, base.AddDate(0, 0, 1), base.Add(11*time.Hour))
		for _, r := range []*readingdomain.Reading{old, early, late} {
			assert.NoError(t, repo.Insert(ctx, db, r))
		}

		latest, err := repo.FindLatestByEquipment(ctx, db, equipmentID)
		assert.NoError(t, err)
		if assert.NotNil(t, latest) {
			assert.Equal(t, late.ID, latest.ID)
		}
	})

	t.Run("FindLatestMissingIsNil", func(t *testing.T) {
		latest, err := repo.FindLatestByEquipment(ctx, db, node.Generate())
		assert.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("UpdateAppliesOnlyPatchedColumns", func(t *testing.T) {
		equipmentID := node.Generate()
		record := newReading(equipmentID, base, base.Add(8*time.Hour))
		record.HourMeter = f(0)
		record.Odometer = f(45000)
		record.Observation = "sin medir"
		assert.NoError(t, repo.Insert(ctx, db, record))

		observation := "sin medir | corregido"
		err := repo.Update(ctx, db, record.ID, readingdomain.Patch{
			HourMeter:   f(87.3),
			Observation: &observation,
		})
		assert.NoError(t, err)

		found, err := repo.FindByID(ctx, db, record.ID)
		assert.NoError(t, err)
		if assert.NotNil(t, found) {
			assert.Equal(t, 87.3, *found.HourMeter)
			assert.Equal(t, 45000.0, *found.Odometer)
			assert.Equal(t, observation, found.Observation)
		}
	})

	t.Run("UpdateEmptyPatchIsNoop", func(t *testing.T) {
		equipmentID := node.Generate()
		record := newReading(equipmentID, base, base.Add(8*time.Hour))
		record.HourMeter = f(12)
		assert.NoError(t, repo.Insert(ctx, db, record))

		assert.NoError(t, repo.Update(ctx, db, record.ID, readingdomain.Patch{}))

		found, err := repo.FindByID(ctx, db, record.ID)
		assert.NoError(t, err)
		if assert.NotNil(t, found) {
			assert.Equal(t, 12.0, *found.HourMeter)
			assert.Equal(t, record.UpdatedAt.Unix(), found.UpdatedAt.Unix())
		}
	})

	t.Run("ListFiltersByEquipmentAndWindow", func(t *testing.T) {
		first := node.Generate()
		second := node.Generate()
		r1 := newReading(first, base, base.Add(8*time.Hour))
		r2 := newReading(first, base.AddDate(0, 0, 2), base.Add(56*time.Hour))
		r3 := newReading(second, base.AddDate(0, 0, 1), base.Add(32*time.Hour))
		for _, r := range []*readingdomain.Reading{r1, r2, r3} {
			assert.NoError(t, repo.Insert(ctx, db, r))
		}

		mine, err := repo.List(ctx, db, readingdomain.Filter{EquipmentID: first})
		assert.NoError(t, err)
		if assert.Len(t, mine, 2) {
			// Newest first.
			assert.Equal(t, r2.ID, mine[0].ID)
			assert.Equal(t, r1.ID, mine[1].ID)
		}

		from := base.AddDate(0, 0, 1)
		to := base.AddDate(0, 0, 1)
		window, err := repo.List(ctx, db, readingdomain.Filter{From: &from, To: &to})
		assert.NoError(t, err)
		if assert.Len(t, window, 1) {
			assert.Equal(t, r3.ID, window[0].ID)
		}
	})

	t.Run("CoveragePairsAreDistinct", func(t *testing.T) {
		equipmentID := node.Generate()
		dup1 := newReading(equipmentID, base.AddDate(0, 0, 5), base.Add(128*time.Hour))
		dup2 := newReading(equipmentID, base.AddDate(0, 0, 5), base.Add(129*time.Hour))
		other := newReading(equipmentID, base.AddDate(0, 0, 6), base.Add(152*time.Hour))
		for _, r := range []*readingdomain.Reading{dup1, dup2, other} {
			assert.NoError(t, repo.Insert(ctx, db, r))
		}

		pairs, err := repo.CoveragePairs(ctx, db, base.AddDate(0, 0, 5), base.AddDate(0, 0, 6))
		assert.NoError(t, err)
		assert.Len(t, pairs, 2)
	})
}
