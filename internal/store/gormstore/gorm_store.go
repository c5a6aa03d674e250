// Package gormstore persists signals, trade plans and the feedback
// ledgers in a single sqlite file via gorm. Grading is the only
// multi-table write and runs inside one transaction so a crash can
// never leave a plan graded without its council and level updates.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aurum/internal/council"
	"aurum/internal/decision"
	"aurum/internal/grading"
	"aurum/internal/macro"
	"aurum/internal/plan"
	storemodel "aurum/internal/store/model"
	"aurum/internal/verify"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrAlreadyGraded marks a plan whose result column is already set.
	ErrAlreadyGraded = errors.New("gorm store: plan already graded")
	// ErrNotFound is returned for lookups that match no row.
	ErrNotFound = errors.New("gorm store: record not found")
)

// SignalRecord is one aggregation snapshot going into or out of the store.
type SignalRecord struct {
	ID             int64
	TraceID        string
	CreatedAt      time.Time
	Price          float64
	Opinions       map[string]council.Opinion
	Macro          macro.Reading
	Decision       decision.Result
	Blackout       bool
	BlackoutReason string
}

// PlanRecord is one trade plan row plus its grading state.
type PlanRecord struct {
	ID        int64
	SignalID  int64
	CreatedAt time.Time
	Plan      plan.TradePlan

	Result    verify.Result
	ExitPrice float64
	Bars      int
	RealizedR float64
	PnL       float64
	GradedAt  time.Time
}

// Graded reports whether the verifier has already settled this plan.
func (r PlanRecord) Graded() bool { return r.Result != "" }

// Stats is the aggregate snapshot served by the HTTP stats endpoint.
type Stats struct {
	Signals        int64   `json:"signals"`
	Buys           int64   `json:"buys"`
	Sells          int64   `json:"sells"`
	Neutrals       int64   `json:"neutrals"`
	AvgConfidence  float64 `json:"avg_confidence"`
	MacroOverrides int64   `json:"macro_overrides"`
	Plans          int64   `json:"plans"`
	Ungraded       int64   `json:"ungraded"`
	Wins           int64   `json:"wins"`
	Losses         int64   `json:"losses"`
	Expired        int64   `json:"expired"`
	WinRate        float64 `json:"win_rate"`
	NetR           float64 `json:"net_r"`
	NetPnL         float64 `json:"net_pnl"`
	Level          int     `json:"level"`
	Balance        float64 `json:"balance"`
}

// Store is the sqlite-backed persistence layer.
type Store struct {
	db        *gorm.DB
	levelMode grading.LevelMode
}

// NewStore opens (or creates) the sqlite database at path, migrates the
// schema and seeds the council tallies and the starting level row.
func NewStore(path string, initialBalance float64, mode grading.LevelMode) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path is required")
	}
	if initialBalance <= 0 {
		return nil, fmt.Errorf("gorm store: initial balance must be > 0, got %v", initialBalance)
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&storemodel.SignalModel{},
		&storemodel.TradePlanModel{},
		&storemodel.CouncilMemberModel{},
		&storemodel.LevelModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)

	s := &Store{db: db, levelMode: mode}
	if err := s.seed(initialBalance, mode); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// seed inserts one zeroed tally per council member and, when the level
// table is empty, the START row. Both are no-ops on an existing database.
func (s *Store) seed(initialBalance float64, mode grading.LevelMode) error {
	members := make([]storemodel.CouncilMemberModel, 0, len(grading.CouncilMembers))
	for _, m := range grading.CouncilMembers {
		members = append(members, storemodel.CouncilMemberModel{Member: m})
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
		return err
	}
	var levels int64
	if err := s.db.Model(&storemodel.LevelModel{}).Count(&levels).Error; err != nil {
		return err
	}
	if levels > 0 {
		return nil
	}
	start := grading.NewLevelState(initialBalance, mode)
	return s.db.Create(&storemodel.LevelModel{
		CreatedAtUnix: time.Now().UnixMilli(),
		Level:         start.Level,
		Balance:       start.Balance,
		Target:        start.Target,
		Result:        start.Result,
		Mode:          string(start.Mode),
	}).Error
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --------------------- signals -------------------------

// InsertSignal appends one aggregation snapshot and fills rec.ID.
func (s *Store) InsertSignal(ctx context.Context, rec *SignalRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store: not initialized")
	}
	if rec == nil {
		return fmt.Errorf("gorm store: signal record is nil")
	}
	m, err := signalToModel(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	rec.ID = m.ID
	return nil
}

// RecentSignals returns the newest limit signals, newest first.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store: not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var models []storemodel.SignalModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]SignalRecord, 0, len(models))
	for i := range models {
		rec, err := signalFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// --------------------- trade plans -------------------------

// InsertPlan appends one trade plan tied to the given signal row.
func (s *Store) InsertPlan(ctx context.Context, signalID int64, createdAt time.Time, p plan.TradePlan) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store: not initialized")
	}
	m := planToModel(signalID, createdAt, p)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

// PlanByID loads one plan row.
func (s *Store) PlanByID(ctx context.Context, id int64) (PlanRecord, error) {
	if s == nil || s.db == nil {
		return PlanRecord{}, fmt.Errorf("gorm store: not initialized")
	}
	var m storemodel.TradePlanModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PlanRecord{}, ErrNotFound
	}
	if err != nil {
		return PlanRecord{}, err
	}
	return planFromModel(&m), nil
}

// UngradedPlans returns every plan with no terminal result yet, oldest
// first, so the verifier settles trades in entry order.
func (s *Store) UngradedPlans(ctx context.Context) ([]PlanRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store: not initialized")
	}
	var models []storemodel.TradePlanModel
	if err := s.db.WithContext(ctx).
		Where("result = ?", "").
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]PlanRecord, 0, len(models))
	for i := range models {
		records = append(records, planFromModel(&models[i]))
	}
	return records, nil
}

// RecentPlans returns the newest limit plans, newest first.
func (s *Store) RecentPlans(ctx context.Context, limit int) ([]PlanRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store: not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var models []storemodel.TradePlanModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]PlanRecord, 0, len(models))
	for i := range models {
		records = append(records, planFromModel(&models[i]))
	}
	return records, nil
}

// CountPlansSince counts plans created at or after t. Used for the daily
// trade cap.
func (s *Store) CountPlansSince(ctx context.Context, t time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store: not initialized")
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&storemodel.TradePlanModel{}).
		Where("created_at >= ?", t.UnixMilli()).
		Count(&n).Error
	return n, err
}

// LastResults returns the results of the newest n graded plans, newest
// first. Used for the consecutive-loss cooldown.
func (s *Store) LastResults(ctx context.Context, n int) ([]verify.Result, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store: not initialized")
	}
	if n <= 0 {
		return nil, nil
	}
	var rows []storemodel.TradePlanModel
	if err := s.db.WithContext(ctx).
		Select("result").
		Where("result <> ?", "").
		Order("graded_at DESC, id DESC").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make([]verify.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, verify.Result(r.Result))
	}
	return results, nil
}

// --------------------- grading -------------------------

// GradeTrade settles one plan with a terminal outcome inside a single
// transaction: it stamps the plan row, applies the council tallies and
// appends the next level row. The plan's empty result column guards
// against double grading; a second call returns ErrAlreadyGraded.
//
// EXPIRED outcomes stamp the plan only. Council and level writes happen
// for WIN/LOSS exclusively.
func (s *Store) GradeTrade(ctx context.Context, planID int64, outcome verify.Outcome) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store: not initialized")
	}
	if !outcome.Result.Terminal() {
		return fmt.Errorf("gorm store: outcome %s is not terminal", outcome.Result)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pm storemodel.TradePlanModel
		if err := tx.First(&pm, "id = ?", planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if pm.Result != "" {
			return ErrAlreadyGraded
		}

		pnl := 0.0
		switch outcome.Result {
		case verify.ResultWin:
			pnl = pm.PotentialGain
		case verify.ResultLoss:
			pnl = -pm.PotentialLoss
		}
		updates := map[string]interface{}{
			"result":     string(outcome.Result),
			"exit_price": outcome.ExitPrice,
			"bars":       outcome.Bars,
			"realized_r": outcome.RealizedR,
			"pnl":        pnl,
			"graded_at":  time.Now().UnixMilli(),
		}
		if err := tx.Model(&storemodel.TradePlanModel{}).
			Where("id = ?", pm.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		if outcome.Result != verify.ResultWin && outcome.Result != verify.ResultLoss {
			return nil
		}

		verdicts, err := signalVerdicts(tx, pm.SignalID)
		if err != nil {
			return err
		}
		if err := applyCouncil(tx, verdicts, decision.Verdict(pm.Direction), outcome); err != nil {
			return err
		}
		return appendLevel(tx, pnl, outcome.Result, s.levelMode)
	})
}

// signalVerdicts rebuilds the per-member verdict map from the stored
// signal row, macro included.
func signalVerdicts(tx *gorm.DB, signalID int64) (map[string]decision.Verdict, error) {
	var sm storemodel.SignalModel
	if err := tx.First(&sm, "id = ?", signalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var opinions map[string]council.Opinion
	if len(sm.Opinions) > 0 {
		if err := json.Unmarshal(sm.Opinions, &opinions); err != nil {
			return nil, fmt.Errorf("gorm store: decode opinions for signal %d: %w", signalID, err)
		}
	}
	verdicts := make(map[string]decision.Verdict, len(opinions)+1)
	for member, op := range opinions {
		verdicts[member] = op.Verdict
	}
	verdicts["macro"] = decision.Verdict(sm.MacroVerdict)
	return verdicts, nil
}

func applyCouncil(tx *gorm.DB, verdicts map[string]decision.Verdict,
	direction decision.Verdict, outcome verify.Outcome) error {
	var rows []storemodel.CouncilMemberModel
	if err := tx.Find(&rows).Error; err != nil {
		return err
	}
	entries := make(map[string]*grading.CouncilEntry, len(rows))
	for i := range rows {
		r := rows[i]
		entries[r.Member] = &grading.CouncilEntry{
			Member:     r.Member,
			Correct:    r.Correct,
			Incorrect:  r.Incorrect,
			Neutral:    r.Neutral,
			TotalR:     r.TotalR,
			TradeCount: r.TradeCount,
			Accuracy:   r.Accuracy,
			Expectancy: r.Expectancy,
		}
	}
	grading.GradeCouncil(entries, verdicts, direction, outcome.Result, outcome.RealizedR)
	for _, e := range entries {
		if err := tx.Model(&storemodel.CouncilMemberModel{}).
			Where("member = ?", e.Member).
			Updates(map[string]interface{}{
				"correct":     e.Correct,
				"incorrect":   e.Incorrect,
				"neutral":     e.Neutral,
				"total_r":     e.TotalR,
				"trade_count": e.TradeCount,
				"accuracy":    e.Accuracy,
				"expectancy":  e.Expectancy,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

func appendLevel(tx *gorm.DB, pnl float64, result verify.Result, mode grading.LevelMode) error {
	var latest storemodel.LevelModel
	if err := tx.Order("id DESC").First(&latest).Error; err != nil {
		return err
	}
	current := grading.LevelState{
		Level:   latest.Level,
		Balance: latest.Balance,
		Target:  latest.Target,
		Result:  latest.Result,
		Mode:    grading.LevelMode(latest.Mode),
	}
	if err := current.Validate(); err != nil {
		return err
	}
	next := grading.AdvanceLevel(current, pnl, result, mode)
	return tx.Create(&storemodel.LevelModel{
		CreatedAtUnix: time.Now().UnixMilli(),
		Level:         next.Level,
		Balance:       next.Balance,
		Target:        next.Target,
		Result:        next.Result,
		Mode:          string(next.Mode),
	}).Error
}

// --------------------- ledgers -------------------------

// Council returns every member tally in the fixed member order.
func (s *Store) Council(ctx context.Context) ([]grading.CouncilEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store: not initialized")
	}
	var rows []storemodel.CouncilMemberModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	byMember := make(map[string]storemodel.CouncilMemberModel, len(rows))
	for _, r := range rows {
		byMember[r.Member] = r
	}
	entries := make([]grading.CouncilEntry, 0, len(grading.CouncilMembers))
	for _, m := range grading.CouncilMembers {
		r, ok := byMember[m]
		if !ok {
			continue
		}
		entries = append(entries, grading.CouncilEntry{
			Member:     r.Member,
			Correct:    r.Correct,
			Incorrect:  r.Incorrect,
			Neutral:    r.Neutral,
			TotalR:     r.TotalR,
			TradeCount: r.TradeCount,
			Accuracy:   r.Accuracy,
			Expectancy: r.Expectancy,
		})
	}
	return entries, nil
}

// LatestLevel returns the newest level row. The balance on it is the
// bankroll the planner sizes positions against.
func (s *Store) LatestLevel(ctx context.Context) (grading.LevelState, error) {
	if s == nil || s.db == nil {
		return grading.LevelState{}, fmt.Errorf("gorm store: not initialized")
	}
	var m storemodel.LevelModel
	if err := s.db.WithContext(ctx).Order("id DESC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return grading.LevelState{}, ErrNotFound
		}
		return grading.LevelState{}, err
	}
	return grading.LevelState{
		Level:   m.Level,
		Balance: m.Balance,
		Target:  m.Target,
		Result:  m.Result,
		Mode:    grading.LevelMode(m.Mode),
	}, nil
}

// LevelHistory returns up to limit level rows, oldest first.
func (s *Store) LevelHistory(ctx context.Context, limit int) ([]grading.LevelState, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store: not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	var models []storemodel.LevelModel
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	states := make([]grading.LevelState, 0, len(models))
	for _, m := range models {
		states = append(states, grading.LevelState{
			Level:   m.Level,
			Balance: m.Balance,
			Target:  m.Target,
			Result:  m.Result,
			Mode:    grading.LevelMode(m.Mode),
		})
	}
	return states, nil
}

// Stats aggregates the ledger counters for the stats endpoint.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.db == nil {
		return Stats{}, fmt.Errorf("gorm store: not initialized")
	}
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&storemodel.SignalModel{}).Count(&st.Signals).Error; err != nil {
		return Stats{}, err
	}
	verdicts := []struct {
		verdict decision.Verdict
		dst     *int64
	}{
		{decision.VerdictBuy, &st.Buys},
		{decision.VerdictSell, &st.Sells},
		{decision.VerdictNeutral, &st.Neutrals},
	}
	for _, v := range verdicts {
		if err := db.Model(&storemodel.SignalModel{}).
			Where("final_verdict = ?", string(v.verdict)).
			Count(v.dst).Error; err != nil {
			return Stats{}, err
		}
	}
	type signalSums struct {
		AvgConfidence  float64 `gorm:"column:avg_confidence"`
		MacroOverrides int64   `gorm:"column:macro_overrides"`
	}
	var ss signalSums
	if err := db.Model(&storemodel.SignalModel{}).
		Select("COALESCE(AVG(confidence), 0) AS avg_confidence, COALESCE(SUM(macro_overridden), 0) AS macro_overrides").
		Scan(&ss).Error; err != nil {
		return Stats{}, err
	}
	st.AvgConfidence = ss.AvgConfidence
	st.MacroOverrides = ss.MacroOverrides
	if err := db.Model(&storemodel.TradePlanModel{}).Count(&st.Plans).Error; err != nil {
		return Stats{}, err
	}
	counts := []struct {
		result string
		dst    *int64
	}{
		{"", &st.Ungraded},
		{string(verify.ResultWin), &st.Wins},
		{string(verify.ResultLoss), &st.Losses},
		{string(verify.ResultExpired), &st.Expired},
	}
	for _, c := range counts {
		if err := db.Model(&storemodel.TradePlanModel{}).
			Where("result = ?", c.result).
			Count(c.dst).Error; err != nil {
			return Stats{}, err
		}
	}
	type sums struct {
		NetR   float64 `gorm:"column:net_r"`
		NetPnL float64 `gorm:"column:net_pnl"`
	}
	var sm sums
	if err := db.Model(&storemodel.TradePlanModel{}).
		Select("COALESCE(SUM(realized_r), 0) AS net_r, COALESCE(SUM(pnl), 0) AS net_pnl").
		Where("result <> ?", "").
		Scan(&sm).Error; err != nil {
		return Stats{}, err
	}
	st.NetR = sm.NetR
	st.NetPnL = sm.NetPnL
	if graded := st.Wins + st.Losses; graded > 0 {
		st.WinRate = float64(st.Wins) / float64(graded) * 100
	}
	level, err := s.LatestLevel(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.Level = level.Level
	st.Balance = level.Balance
	return st, nil
}

// --------------------- conversions -------------------------

func signalToModel(rec *SignalRecord) (*storemodel.SignalModel, error) {
	opinions, err := json.Marshal(rec.Opinions)
	if err != nil {
		return nil, fmt.Errorf("gorm store: encode opinions: %w", err)
	}
	detail, err := json.Marshal(rec.Macro.Bundle)
	if err != nil {
		return nil, fmt.Errorf("gorm store: encode macro bundle: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &storemodel.SignalModel{
		ID:               rec.ID,
		TraceID:          rec.TraceID,
		CreatedAtUnix:    createdAt.UnixMilli(),
		Price:            rec.Price,
		Opinions:         datatypes.JSON(opinions),
		MacroVerdict:     string(rec.Macro.Verdict),
		MacroScore:       rec.Macro.Score,
		MacroDetail:      datatypes.JSON(detail),
		TechnicalVerdict: string(rec.Decision.TechnicalVerdict),
		FinalVerdict:     string(rec.Decision.FinalVerdict),
		Score:            rec.Decision.Score,
		Confidence:       rec.Decision.Confidence,
		MacroOverridden:  rec.Decision.MacroOverridden,
		Blackout:         rec.Blackout,
		BlackoutReason:   rec.BlackoutReason,
	}, nil
}

func signalFromModel(m *storemodel.SignalModel) (SignalRecord, error) {
	rec := SignalRecord{
		ID:        m.ID,
		TraceID:   m.TraceID,
		CreatedAt: time.UnixMilli(m.CreatedAtUnix).UTC(),
		Price:     m.Price,
		Macro: macro.Reading{
			Verdict: decision.Verdict(m.MacroVerdict),
			Score:   m.MacroScore,
		},
		Decision: decision.Result{
			FinalVerdict:     decision.Verdict(m.FinalVerdict),
			TechnicalVerdict: decision.Verdict(m.TechnicalVerdict),
			Score:            m.Score,
			Confidence:       m.Confidence,
			MacroOverridden:  m.MacroOverridden,
		},
		Blackout:       m.Blackout,
		BlackoutReason: m.BlackoutReason,
	}
	if len(m.Opinions) > 0 {
		if err := json.Unmarshal(m.Opinions, &rec.Opinions); err != nil {
			return SignalRecord{}, fmt.Errorf("gorm store: decode opinions for signal %d: %w", m.ID, err)
		}
	}
	if len(m.MacroDetail) > 0 {
		if err := json.Unmarshal(m.MacroDetail, &rec.Macro.Bundle); err != nil {
			return SignalRecord{}, fmt.Errorf("gorm store: decode macro bundle for signal %d: %w", m.ID, err)
		}
	}
	return rec, nil
}

func planToModel(signalID int64, createdAt time.Time, p plan.TradePlan) *storemodel.TradePlanModel {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &storemodel.TradePlanModel{
		SignalID:       signalID,
		CreatedAtUnix:  createdAt.UnixMilli(),
		Direction:      string(p.Direction),
		Entry:          p.Entry,
		StopLoss:       p.StopLoss,
		TakeProfit:     p.TakeProfit,
		Lots:           p.Lots,
		StopPips:       p.StopPips,
		TargetPips:     p.TargetPips,
		RewardMultiple: p.RewardMultiple,
		RiskAmount:     p.RiskAmount,
		PotentialLoss:  p.PotentialLoss,
		PotentialGain:  p.PotentialGain,
		ATR:            p.ATR,
	}
}

func planFromModel(m *storemodel.TradePlanModel) PlanRecord {
	rec := PlanRecord{
		ID:        m.ID,
		SignalID:  m.SignalID,
		CreatedAt: time.UnixMilli(m.CreatedAtUnix).UTC(),
		Plan: plan.TradePlan{
			Direction:      decision.Verdict(m.Direction),
			Entry:          m.Entry,
			StopLoss:       m.StopLoss,
			TakeProfit:     m.TakeProfit,
			Lots:           m.Lots,
			StopPips:       m.StopPips,
			TargetPips:     m.TargetPips,
			RewardMultiple: m.RewardMultiple,
			RiskAmount:     m.RiskAmount,
			PotentialLoss:  m.PotentialLoss,
			PotentialGain:  m.PotentialGain,
			ATR:            m.ATR,
		},
		Result:    verify.Result(m.Result),
		ExitPrice: m.ExitPrice,
		Bars:      m.Bars,
		RealizedR: m.RealizedR,
		PnL:       m.PnL,
	}
	if m.GradedAtUnix > 0 {
		rec.GradedAt = time.UnixMilli(m.GradedAtUnix).UTC()
	}
	return rec
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
