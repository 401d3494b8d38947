package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

const (
	defaultGormTableName = "version_locks"
	defaultGormOpTimeout = 5 * time.Second
)

// lockRow is the internal model used to persist locks. The unique index on
// version_id enforces the at-most-one-lock invariant at the database level.
type lockRow struct {
	ID          string    `gorm:"primaryKey;column:id"`
	VersionID   string    `gorm:"column:version_id;uniqueIndex"`
	HolderID    string    `gorm:"column:holder_id"`
	HolderName  string    `gorm:"column:holder_name"`
	HolderEmail string    `gorm:"column:holder_email"`
	Created     time.Time `gorm:"column:created"`
}

// Gorm implements Store using a GORM backend. The gorm.DB should be opened
// with TranslateError enabled so uniqueness violations surface as
// gorm.ErrDuplicatedKey.
type Gorm struct {
	db        *gorm.DB
	tableName string
	timeout   time.Duration
}

// GormOption configures a Gorm store.
type GormOption func(*gormOptions)

type gormOptions struct {
	tableName string
	timeout   time.Duration
}

// WithGormTableName sets the table name for the lock table.
func WithGormTableName(name string) GormOption {
	return func(o *gormOptions) {
		o.tableName = name
	}
}

// WithGormTimeout sets the operation timeout for GORM calls.
func WithGormTimeout(d time.Duration) GormOption {
	return func(o *gormOptions) {
		o.timeout = d
	}
}

// NewGorm returns a new Gorm store using the provided GORM DB connection.
func NewGorm(db *gorm.DB, opts ...GormOption) *Gorm {
	o := gormOptions{
		tableName: defaultGormTableName,
		timeout:   defaultGormOpTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Ensure the table exists
	if !db.Migrator().HasTable(o.tableName) {
		_ = db.Table(o.tableName).AutoMigrate(&lockRow{})
	}

	return &Gorm{
		db:        db,
		tableName: o.tableName,
		timeout:   o.timeout,
	}
}

// Get implements Store.Get.
func (s *Gorm) Get(ctx context.Context, versionID string) (*Lock, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row lockRow
	err := s.db.WithContext(cctx).Table(s.tableName).First(&row, "version_id = ?", versionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, verrors.ErrTimeout
		}
		return nil, err
	}
	return row.lock(), nil
}

// Create implements Store.Create. The insert relies on the unique index on
// version_id: a losing racer gets a duplicate-key error, reported as
// errors.ErrLockExists.
func (s *Gorm) Create(ctx context.Context, versionID string, holder version.User) (*Lock, error) {
	row := lockRow{
		ID:          uuid.NewString(),
		VersionID:   versionID,
		HolderID:    holder.ID,
		HolderName:  holder.Name,
		HolderEmail: holder.Email,
		Created:     time.Now(),
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(cctx).Table(s.tableName).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, verrors.ErrLockExists
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, verrors.ErrTimeout
		}
		return nil, err
	}
	return row.lock(), nil
}

// Delete implements Store.Delete.
func (s *Gorm) Delete(ctx context.Context, versionID string) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(cctx).Table(s.tableName).Delete(&lockRow{}, "version_id = ?", versionID)
	if res.Error != nil {
		if errors.Is(res.Error, context.DeadlineExceeded) {
			return 0, verrors.ErrTimeout
		}
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *lockRow) lock() *Lock {
	return &Lock{
		ID:        r.ID,
		VersionID: r.VersionID,
		CreatedBy: version.User{ID: r.HolderID, Name: r.HolderName, Email: r.HolderEmail},
		Created:   r.Created,
	}
}
