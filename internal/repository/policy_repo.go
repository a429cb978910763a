package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/policy"
)

// PolicyRepository reads the seeded policy catalog.
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) *PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// LoadCatalog returns all policies in seed order. An empty table yields an
// empty slice; the caller decides whether to fall back to the built-in
// catalog.
func (r *PolicyRepository) LoadCatalog() ([]policy.Policy, error) {
	query := `
		SELECT name, description, when_to_use, applicable_problems
		FROM policies
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy catalog: %w", err)
	}
	defer rows.Close()

	var catalog []policy.Policy
	for rows.Next() {
		var p policy.Policy
		var problems string

		if err := rows.Scan(&p.Name, &p.Description, &p.WhenToUse, &problems); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		if problems != "" {
			p.ApplicableProblems = strings.Split(problems, ",")
		}
		catalog = append(catalog, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("Policy catalog loaded", zap.Int("count", len(catalog)))
	return catalog, nil
}
