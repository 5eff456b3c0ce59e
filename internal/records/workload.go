package records

import (
	"context"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/schema"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// WorkloadConfigs is the repository for the workload_config table. Callers
// treat the table as holding a single row; GetOrCreate is the way to reach it.
type WorkloadConfigs struct {
	exec  *executor
	group singleflight.Group
}

func newWorkloadConfigs(exec *executor) *WorkloadConfigs {
	return &WorkloadConfigs{exec: exec}
}

// Get returns the first configuration row, or nil when none exists.
func (r *WorkloadConfigs) Get(ctx context.Context) (*WorkloadConfig, error) {
	return first[WorkloadConfig](ctx, r.exec, "workload_config.get", func(db *gorm.DB) *gorm.DB {
		return db.Order(orderIDAsc)
	})
}

// GetOrCreate returns the existing configuration or stores and returns
// DefaultWorkloadConfig. Concurrent callers share one lookup, and the
// check-then-insert runs in a single write transaction, so at most one row is
// ever created. The shared work is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx ends.
func (r *WorkloadConfigs) GetOrCreate(ctx context.Context) (*WorkloadConfig, error) {
	const operation = "workload_config.get_or_create"
	if existing, err := r.Get(ctx); err != nil || existing != nil {
		return existing, err
	}

	shared := context.WithoutCancel(ctx)
	results := r.group.DoChan(schema.TableWorkloadConfig, func() (any, error) {
		var config WorkloadConfig
		err := r.exec.write(shared, operation, []string{schema.TableWorkloadConfig}, func(tx *gorm.DB) (int64, error) {
			found, err := checked(tx.Order(orderIDAsc).Limit(1).Find(&config))
			if err != nil || found > 0 {
				return 0, err
			}
			config = DefaultWorkloadConfig()
			return checked(tx.Create(&config))
		})
		if err != nil {
			return nil, err
		}
		return config, nil
	})

	select {
	case <-ctx.Done():
		return nil, r.exec.fail(operation, "", ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		config := result.Val.(WorkloadConfig)
		return &config, nil
	}
}

// Insert stores config, replacing the row when a non-zero id already exists.
func (r *WorkloadConfigs) Insert(ctx context.Context, config *WorkloadConfig) (int64, error) {
	err := r.exec.write(ctx, "workload_config.insert", []string{schema.TableWorkloadConfig}, func(tx *gorm.DB) (int64, error) {
		return checked(tx.Clauses(upsertOnID).Create(config))
	})
	if err != nil {
		return 0, err
	}
	return config.ID, nil
}

func (r *WorkloadConfigs) Update(ctx context.Context, config *WorkloadConfig) error {
	const operation = "workload_config.update"
	if config.ID == 0 {
		return notFound(operation, 0)
	}
	return r.exec.write(ctx, operation, []string{schema.TableWorkloadConfig}, func(tx *gorm.DB) (int64, error) {
		rows, err := checked(tx.Model(config).Select("*").Omit("id").Updates(config))
		if err != nil {
			return 0, err
		}
		if rows == 0 {
			return 0, notFound(operation, config.ID)
		}
		return rows, nil
	})
}

func (r *WorkloadConfigs) DeleteAll(ctx context.Context) error {
	return r.exec.write(ctx, "workload_config.delete_all", []string{schema.TableWorkloadConfig}, func(tx *gorm.DB) (int64, error) {
		return checked(tx.Where("1 = 1").Delete(&WorkloadConfig{}))
	})
}
