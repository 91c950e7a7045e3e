package services

import (
	"context"
	"sort"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/irfndi/skupulse/internal/config"
	"github.com/irfndi/skupulse/internal/logging"
	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/reference"
	"github.com/irfndi/skupulse/internal/utils"
)

// Baseline holds peer medians for one category. Nil means no peer in the
// group had the metric.
type Baseline struct {
	CTR             *float64 `json:"ctr,omitempty"`
	CROrder         *float64 `json:"crOrder,omitempty"`
	DRR             *float64 `json:"drr,omitempty"`
	BuyoutPct       *float64 `json:"buyoutPct,omitempty"`
	ProfitMarginPct *float64 `json:"profitMarginPct,omitempty"`
	Revenue         *float64 `json:"revenue,omitempty"`
}

// orElse fills unknown metrics of b from fallback.
func (b Baseline) orElse(fallback Baseline) Baseline {
	pick := func(v, f *float64) *float64 {
		if v != nil {
			return v
		}
		return f
	}
	return Baseline{
		CTR:             pick(b.CTR, fallback.CTR),
		CROrder:         pick(b.CROrder, fallback.CROrder),
		DRR:             pick(b.DRR, fallback.DRR),
		BuyoutPct:       pick(b.BuyoutPct, fallback.BuyoutPct),
		ProfitMarginPct: pick(b.ProfitMarginPct, fallback.ProfitMarginPct),
		Revenue:         pick(b.Revenue, fallback.Revenue),
	}
}

// PopulationContext carries the peer baselines of one classification pass.
// It is built from the whole population before any SKU is evaluated and is
// never mutated afterwards, so concurrent readers need no locking.
type PopulationContext struct {
	lookup     *reference.Lookup
	categories map[string]Baseline
	population Baseline
}

type metricSamples struct {
	ctr, crOrder, drr, buyout, margin, revenue []float64
}

func (m *metricSamples) add(s models.MetricSnapshot) {
	if s.CTR != nil {
		m.ctr = append(m.ctr, *s.CTR)
	}
	if s.CROrder != nil {
		m.crOrder = append(m.crOrder, *s.CROrder)
	}
	if s.DRR != nil {
		m.drr = append(m.drr, *s.DRR)
	}
	if s.BuyoutPct != nil {
		m.buyout = append(m.buyout, *s.BuyoutPct)
	}
	if s.ProfitMarginPct != nil {
		m.margin = append(m.margin, *s.ProfitMarginPct)
	}
	revenue, _ := s.RevenueWithVat.Float64()
	m.revenue = append(m.revenue, revenue)
}

func (m *metricSamples) baseline() Baseline {
	median := func(values []float64) *float64 {
		if v, ok := calculateMedian(values); ok {
			return &v
		}
		return nil
	}
	return Baseline{
		CTR:             median(m.ctr),
		CROrder:         median(m.crOrder),
		DRR:             median(m.drr),
		BuyoutPct:       median(m.buyout),
		ProfitMarginPct: median(m.margin),
		Revenue:         median(m.revenue),
	}
}

// NewPopulationContext computes per-category medians over snapshots. SKUs
// without reference data are grouped under the empty category.
func NewPopulationContext(snapshots []models.MetricSnapshot, lookup *reference.Lookup) *PopulationContext {
	perCategory := make(map[string]*metricSamples)
	all := &metricSamples{}

	for _, s := range snapshots {
		category := lookup.Resolve(s.NmID).CategoryWB
		samples, ok := perCategory[category]
		if !ok {
			samples = &metricSamples{}
			perCategory[category] = samples
		}
		samples.add(s)
		all.add(s)
	}

	categories := make(map[string]Baseline, len(perCategory))
	for category, samples := range perCategory {
		categories[category] = samples.baseline()
	}

	return &PopulationContext{
		lookup:     lookup,
		categories: categories,
		population: all.baseline(),
	}
}

// Reference returns the reference data of a SKU, empty fields when unknown.
func (pc *PopulationContext) Reference(nmID int64) models.SKUReference {
	return pc.lookup.Resolve(nmID)
}

// BaselineFor returns the category baseline, with population-wide medians
// standing in for metrics the category lacks.
func (pc *PopulationContext) BaselineFor(category string) Baseline {
	if b, ok := pc.categories[category]; ok {
		return b.orElse(pc.population)
	}
	return pc.population
}

// SkippedRecord describes a snapshot excluded from a pass.
type SkippedRecord struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ClassificationResult is the immutable outcome of one classification pass.
type ClassificationResult struct {
	PassID       string                 `json:"passId"`
	ClassifiedAt time.Time              `json:"classifiedAt"`
	SKUs         []models.ClassifiedSKU `json:"skus"`
	Clusters     models.ClusterCounts   `json:"clusters"`
	Evaluated    int                    `json:"evaluated"`
	Skipped      []SkippedRecord        `json:"skipped"`
}

// SignalClassifier evaluates the signal rules over SKU snapshots.
type SignalClassifier struct {
	thresholds config.SignalsConfig
	logger     *logrus.Logger
}

// NewSignalClassifier creates a classifier. Thresholds are expected to have
// passed config validation.
func NewSignalClassifier(thresholds config.SignalsConfig, logger *logrus.Logger) *SignalClassifier {
	return &SignalClassifier{
		thresholds: thresholds,
		logger:     logger,
	}
}

// ValidateSnapshot rejects snapshots with out-of-range fields.
func ValidateSnapshot(s models.MetricSnapshot) error {
	if s.SKU == "" && s.NmID <= 0 {
		return utils.NewValidationError("snapshot has no identifier")
	}

	counts := []struct {
		name  string
		value int64
	}{
		{"clicks", s.Clicks},
		{"addToCart", s.AddToCart},
		{"ordersQty", s.OrdersQty},
		{"currentStock", s.CurrentStock},
	}
	for _, c := range counts {
		if c.value < 0 {
			return utils.NewValidationErrorf("%s is negative (%d)", c.name, c.value)
		}
	}

	// calculatedProfit may legitimately be a loss.
	money := []struct {
		name  string
		value decimal.Decimal
	}{
		{"priceRub", s.PriceRub},
		{"revenueWithVat", s.RevenueWithVat},
		{"buyerPrice", s.BuyerPrice},
	}
	for _, m := range money {
		if m.value.IsNegative() {
			return utils.NewValidationErrorf("%s is negative (%s)", m.name, m.value.String())
		}
	}

	rates := []struct {
		name          string
		value         *float64
		allowNegative bool
	}{
		{"ctr", s.CTR, false},
		{"crCart", s.CRCart, false},
		{"crOrder", s.CROrder, false},
		{"drr", s.DRR, false},
		{"profitMarginPct", s.ProfitMarginPct, true},
		{"buyoutPct", s.BuyoutPct, false},
		{"stockCoverDays", s.StockCoverDays, false},
	}
	for _, r := range rates {
		if r.value == nil {
			continue
		}
		if !isFinite(*r.value) {
			return utils.NewValidationErrorf("%s is not a finite number", r.name)
		}
		if !r.allowNegative && *r.value < 0 {
			return utils.NewValidationErrorf("%s is negative (%v)", r.name, *r.value)
		}
	}

	for i, qty := range s.RecentOrders {
		if qty < 0 {
			return utils.NewValidationErrorf("recentOrders[%d] is negative (%d)", i, qty)
		}
	}

	if s.OrdersQty == 0 && s.RevenueWithVat.IsPositive() {
		return utils.NewValidationErrorf("revenue %s reported without orders", s.RevenueWithVat.String())
	}
	return nil
}

// Classify evaluates every rule independently for one snapshot. Unknown
// metrics skip their rule. The same snapshot and context always give the
// same set.
func (c *SignalClassifier) Classify(s models.MetricSnapshot, pc *PopulationContext) models.TagSet {
	tags := models.NewTagSet()
	t := c.thresholds
	base := pc.BaselineFor(pc.Reference(s.NmID).CategoryWB)

	if s.CurrentStock == 0 {
		tags.Add(models.SignalOOSNow)
	}

	if s.CurrentStock > 0 && s.StockCoverDays != nil && *s.StockCoverDays < t.OOSSoonDays {
		tags.Add(models.SignalOOSSoon)
	}

	if s.DRR != nil && *s.DRR > t.HighDRRPct {
		tags.Add(models.SignalHighDRR)
	}

	if s.CTR != nil && base.CTR != nil && *base.CTR > 0 && *s.CTR < *base.CTR*t.LowCTRRatio {
		tags.Add(models.SignalLowCTR)
	}

	if s.CROrder != nil && *s.CROrder < t.LowCROrderPct {
		tags.Add(models.SignalLowCR)
	}

	if s.BuyoutPct != nil && *s.BuyoutPct < t.LowBuyoutPct {
		tags.Add(models.SignalLowBuyout)
	}

	if s.StockCoverDays != nil && *s.StockCoverDays > t.OverstockDays {
		tags.Add(models.SignalOverstock)
	}

	if c.aboveMarket(s, base) {
		tags.Add(models.SignalAboveMarket)
	}

	if c.fallingSales(s.RecentOrders) {
		tags.Add(models.SignalFallingSales)
	}

	return tags
}

func (c *SignalClassifier) aboveMarket(s models.MetricSnapshot, base Baseline) bool {
	if s.ProfitMarginPct != nil && base.ProfitMarginPct != nil &&
		*s.ProfitMarginPct > *base.ProfitMarginPct+c.thresholds.AboveMarketMarginPoints {
		return true
	}
	if base.Revenue != nil && *base.Revenue > 0 {
		revenue, _ := s.RevenueWithVat.Float64()
		return revenue >= *base.Revenue*c.thresholds.AboveMarketRevenueRatio
	}
	return false
}

// fallingSales compares the moving average of the last window of daily
// orders with the window right before it. Short histories are unknown.
func (c *SignalClassifier) fallingSales(history []int64) bool {
	window := c.thresholds.FallingSalesWindow
	if window < 1 || len(history) < 2*window {
		return false
	}

	tail := history[len(history)-2*window:]
	series := make([]float64, len(tail))
	for i, qty := range tail {
		series[i] = float64(qty)
	}

	sma := helper.ChanToSlice(trend.NewSmaWithPeriod[float64](window).Compute(helper.SliceToChan(series)))
	if len(sma) <= window {
		return false
	}

	recent := sma[len(sma)-1]
	prior := sma[len(sma)-1-window]
	if prior <= 0 {
		return false
	}

	dropPct := (prior - recent) / prior * 100
	return dropPct >= c.thresholds.FallingSalesDropPct
}

// ClassifyPopulation runs one full pass: validate, build the population
// context from the valid snapshots, then classify each SKU against it.
// Invalid snapshots are logged and skipped; an empty population fails the
// whole pass.
func (c *SignalClassifier) ClassifyPopulation(ctx context.Context, snapshots []models.MetricSnapshot, lookup *reference.Lookup) (*ClassificationResult, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "SignalClassifier.ClassifyPopulation")
	defer span.End()

	started := time.Now()
	log := logging.WithComponent(c.logger, "signal_classifier")

	if len(snapshots) == 0 {
		return nil, utils.NewInsufficientDataErrorf("no SKU snapshots supplied for classification")
	}

	valid := make([]models.MetricSnapshot, 0, len(snapshots))
	skipped := make([]SkippedRecord, 0)
	for _, s := range snapshots {
		if err := ValidateSnapshot(s); err != nil {
			log.WithFields(logrus.Fields{
				"sku":    s.SKU,
				"nm_id":  s.NmID,
				"reason": err.Error(),
			}).Warn("Skipping invalid snapshot")
			skipped = append(skipped, SkippedRecord{Key: s.Key(), Reason: err.Error()})
			continue
		}
		valid = append(valid, s)
	}

	if len(valid) == 0 {
		return nil, utils.NewInsufficientDataErrorf("all %d snapshots failed validation", len(snapshots))
	}

	pc := NewPopulationContext(valid, lookup)

	classified := make([]models.ClassifiedSKU, 0, len(valid))
	for _, s := range valid {
		classified = append(classified, models.ClassifiedSKU{
			Snapshot:  s,
			Reference: pc.Reference(s.NmID),
			Tags:      c.Classify(s, pc),
		})
	}
	sort.SliceStable(classified, func(i, j int) bool {
		return lessByIdentifier(classified[i].Snapshot, classified[j].Snapshot)
	})

	result := &ClassificationResult{
		PassID:       uuid.New().String(),
		ClassifiedAt: time.Now(),
		SKUs:         classified,
		Clusters:     AggregateClusters(classified),
		Evaluated:    len(classified),
		Skipped:      skipped,
	}

	span.SetAttributes(
		attribute.String("pass_id", result.PassID),
		attribute.Int("skus.evaluated", result.Evaluated),
		attribute.Int("skus.skipped", len(skipped)),
	)
	logging.LogPassSummary(log.WithField("pass_id", result.PassID), "classification",
		result.Evaluated, len(skipped), time.Since(started).Milliseconds())

	return result, nil
}

// AggregateClusters counts, for every tag, the SKUs carrying it. A SKU counts
// once in each of its clusters, so totals may exceed the SKU count. Every
// known tag is present in the result, zero when unused.
func AggregateClusters(classified []models.ClassifiedSKU) models.ClusterCounts {
	counts := make(models.ClusterCounts, len(models.AllSignalTags))
	for _, tag := range models.AllSignalTags {
		counts[tag] = 0
	}
	for _, sku := range classified {
		for tag := range sku.Tags {
			counts[tag]++
		}
	}
	return counts
}

// FilterOptions narrows the SKU list beyond the selected cluster.
type FilterOptions struct {
	// ShowAll includes SKUs without any tag when no cluster is selected.
	ShowAll         bool
	BrandManager    string
	CategoryManager string
}

// FilterSKUs returns the SKUs to present: those carrying the selected
// cluster when one is given, otherwise every tagged SKU (or every SKU with
// ShowAll). The result is ordered by most urgent tag, then identifier.
func FilterSKUs(classified []models.ClassifiedSKU, selected *models.SignalTag, opts FilterOptions) []models.ClassifiedSKU {
	out := make([]models.ClassifiedSKU, 0, len(classified))
	for _, sku := range classified {
		switch {
		case selected != nil:
			if !sku.Tags.Has(*selected) {
				continue
			}
		case !opts.ShowAll:
			if len(sku.Tags) == 0 {
				continue
			}
		}
		if opts.BrandManager != "" && sku.Reference.BrandManager != opts.BrandManager {
			continue
		}
		if opts.CategoryManager != "" && sku.Reference.CategoryManager != opts.CategoryManager {
			continue
		}
		out = append(out, sku)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Tags.MinPriority(), out[j].Tags.MinPriority()
		if pi != pj {
			return pi < pj
		}
		return lessByIdentifier(out[i].Snapshot, out[j].Snapshot)
	})
	return out
}

func lessByIdentifier(a, b models.MetricSnapshot) bool {
	if a.SKU != b.SKU {
		return a.SKU < b.SKU
	}
	return a.NmID < b.NmID
}

// ClassifiedByTag groups SKUs per tag, used by summarizers downstream.
func ClassifiedByTag(classified []models.ClassifiedSKU) map[models.SignalTag][]models.ClassifiedSKU {
	groups := make(map[models.SignalTag][]models.ClassifiedSKU)
	for _, sku := range classified {
		for tag := range sku.Tags {
			groups[tag] = append(groups[tag], sku)
		}
	}
	return groups
}
