package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	feedctx "ctxfeed/internal/context"
)

// ContextQuery selects the stored fixtures that make up an agent context.
// Zero fields are skipped.
type ContextQuery struct {
	TaskID       string
	TicketNumber int
	PlanName     string
	SessionID    string
	// HistoryLimit caps how many of the session's latest turns are loaded.
	// Zero loads them all.
	HistoryLimit int
}

// LoadAgentContext assembles an agent context from stored fixtures. An
// explicitly requested task, ticket or plan that does not exist yields
// ErrNotFound. A session with no rows yields an empty history.
func (db *DB) LoadAgentContext(q ContextQuery) (feedctx.AgentContext, error) {
	var ac feedctx.AgentContext
	var err error

	if q.TaskID != "" {
		if ac.Task, err = db.GetTask(q.TaskID); err != nil {
			return ac, err
		}
	}
	if q.TicketNumber != 0 {
		if ac.Ticket, err = db.GetTicket(q.TicketNumber); err != nil {
			return ac, err
		}
	}
	if q.PlanName != "" {
		if ac.Plan, err = db.GetPlan(q.PlanName); err != nil {
			return ac, err
		}
	}
	if q.SessionID != "" {
		if ac.History, err = db.GetHistory(q.SessionID, q.HistoryLimit); err != nil {
			return ac, fmt.Errorf("load history: %w", err)
		}
		supp, err := db.ListSupplementary(q.SessionID)
		if err != nil {
			return ac, fmt.Errorf("load supplementary: %w", err)
		}
		if len(supp) > 0 {
			ac.Supplementary = supp
		}
	}
	return ac, nil
}

// SessionFixture is the history and supplementary data of one session.
type SessionFixture struct {
	ID            string                 `yaml:"id"`
	History       []feedctx.HistoryEntry `yaml:"history"`
	Supplementary map[string]any         `yaml:"supplementary"`
}

// Fixtures is the YAML document accepted by Import.
type Fixtures struct {
	Tasks    []feedctx.Task   `yaml:"tasks"`
	Tickets  []feedctx.Ticket `yaml:"tickets"`
	Plans    []feedctx.Plan   `yaml:"plans"`
	Sessions []SessionFixture `yaml:"sessions"`
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	Tasks, Tickets, Plans, HistoryEntries, Supplementary int
}

// LoadFixtures parses a fixtures YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Import writes every fixture in one transaction. Tasks, tickets and plans
// are upserted; history is appended.
func (db *DB) Import(f *Fixtures) (ImportStats, error) {
	var st ImportStats
	err := db.WithTx(func(tx *Tx) error {
		for i := range f.Tasks {
			if err := saveTask(tx, &f.Tasks[i]); err != nil {
				return fmt.Errorf("task %q: %w", f.Tasks[i].ID, err)
			}
			st.Tasks++
		}
		for i := range f.Tickets {
			if err := saveTicket(tx, &f.Tickets[i]); err != nil {
				return fmt.Errorf("ticket %d: %w", f.Tickets[i].Number, err)
			}
			st.Tickets++
		}
		for i := range f.Plans {
			if err := savePlan(tx, &f.Plans[i]); err != nil {
				return fmt.Errorf("plan %q: %w", f.Plans[i].Name, err)
			}
			st.Plans++
		}
		for _, s := range f.Sessions {
			if len(s.History) > 0 {
				if err := appendHistory(tx, s.ID, s.History); err != nil {
					return fmt.Errorf("session %q: %w", s.ID, err)
				}
				st.HistoryEntries += len(s.History)
			}
			for k, v := range s.Supplementary {
				if err := setSupplementary(tx, s.ID, k, v); err != nil {
					return fmt.Errorf("session %q: %w", s.ID, err)
				}
				st.Supplementary++
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return st, nil
}
