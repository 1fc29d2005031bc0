package ledger

import (
	"context"

	"go.uber.org/zap"
)

type Outcome int

const (
	// OutcomeExternal means no open record exists: someone other than the bot acted.
	OutcomeExternal Outcome = iota
	OutcomeMatched
	// OutcomeMismatch means the record found under the key names a different target.
	OutcomeMismatch
	// OutcomeIgnored means the record asked for the confirmation to go unlogged.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "external"
	}
}

type Reconciliation struct {
	Outcome Outcome
	Record  Record
}

// ReconcileBan matches a ban confirmation for userID against the open BAN, SOFT_BAN and
// TEMP_BAN records, in that order. The first record found decides the outcome.
func (l *Ledger) ReconcileBan(ctx context.Context, guildID, userID string) (Reconciliation, error) {
	for _, actionType := range banPriority {
		record, found, err := l.GetAction(ctx, actionType, guildID, userID)
		if err != nil {
			return Reconciliation{}, err
		}
		if found {
			return l.verify(record, userID), nil
		}
	}
	return Reconciliation{Outcome: OutcomeExternal}, nil
}

// ReconcileUnban matches an unban confirmation. Ignored records are consumed here since nobody
// will log them.
func (l *Ledger) ReconcileUnban(ctx context.Context, guildID, userID string) (Reconciliation, error) {
	ignore, found, err := l.ShouldIgnoreAction(ctx, ActionUnban, guildID, userID)
	if err != nil {
		return Reconciliation{}, err
	}
	if !found {
		return Reconciliation{Outcome: OutcomeExternal}, nil
	}
	if ignore {
		if err := l.RemoveAction(ctx, ActionUnban, guildID, userID); err != nil {
			return Reconciliation{}, err
		}
		return Reconciliation{Outcome: OutcomeIgnored}, nil
	}

	record, found, err := l.GetAction(ctx, ActionUnban, guildID, userID)
	if err != nil {
		return Reconciliation{}, err
	}
	if !found {
		return Reconciliation{Outcome: OutcomeExternal}, nil
	}
	return l.verify(record, userID), nil
}

// Consume deletes a matched record once its log entry has been handled.
func (l *Ledger) Consume(ctx context.Context, record Record) error {
	return l.RemoveAction(ctx, record.Type, record.GuildID, record.TargetID)
}

func (l *Ledger) verify(record Record, userID string) Reconciliation {
	if record.Data.TargetUserID != userID {
		l.logger.Warn("moderation record target mismatch",
			zap.String("type", string(record.Type)),
			zap.String("guild_id", record.GuildID),
			zap.String("event_user_id", userID),
			zap.String("record_user_id", record.Data.TargetUserID),
		)
		return Reconciliation{Outcome: OutcomeMismatch, Record: record}
	}
	return Reconciliation{Outcome: OutcomeMatched, Record: record}
}
