package pnl

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestComputePortfolio_FIFO(t *testing.T) {
	events := []TradeEvent{
		buy("BONK", 100, 100, 0, "tx1"), // 100 @ 1.0
		buy("BONK", 100, 200, 1, "tx2"), // 100 @ 2.0
		sell("BONK", 150, 450, 2, "tx3"),
	}

	r := NewEngine().ComputePortfolio(events, nil)

	p, ok := r.Position("BONK")
	if !ok {
		t.Fatalf("Position(BONK) not found")
	}
	assertMoney(t, "Realized", p.Realized, SOL(250))
	assertMoney(t, "CostOfSold", p.CostOfSold, SOL(200))
	assertQuantity(t, "Balance", p.Balance, Q(50))
	assertMoney(t, "RemainingUnitCost", p.RemainingUnitCost, SOL(2))
	assertMoney(t, "RemainingCost", p.RemainingCost, SOL(100))
	if got, want := p.RealizedPercent, Percent(125); !got.Equal(want) {
		t.Errorf("RealizedPercent = %v, want %v", got, want)
	}
	if got, want := len(p.Realizations), 1; got != want {
		t.Fatalf("len(Realizations) = %d, want %d", got, want)
	}
	assertMoney(t, "Realizations[0].Gain", p.Realizations[0].Gain, SOL(250))
}

func TestComputePortfolio_Idempotent(t *testing.T) {
	events := []TradeEvent{
		buy("BONK", 100, 100, 0, "tx1"),
		buy("WIF", 10, 5, 1, "tx2"),
		sell("BONK", 30, 60, 2, "tx3"),
		buy("BONK", 50, 40, 3, "tx4"),
		sell("WIF", 20, 30, 4, "tx5"),
	}
	oracle := prices(map[string]float64{"BONK": 1.5})
	engine := NewEngine()

	first := engine.ComputePortfolio(events, oracle)
	second := engine.ComputePortfolio(events, oracle)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ComputePortfolio() is not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestComputePortfolio_InputOrderIndependent(t *testing.T) {
	sorted := []TradeEvent{
		buy("BONK", 100, 100, 0, "tx1"),
		buy("BONK", 100, 300, 0, "tx2"), // same time, tie broken by ref
		sell("BONK", 100, 250, 1, "tx3"),
		buy("WIF", 1, 1, 1, "tx3"),
		sell("WIF", 1, 2, 2, "tx4"),
	}
	sorted[3].Index = 1 // second transfer of tx3

	oracle := prices(map[string]float64{"BONK": 2})
	want := NewEngine().ComputePortfolio(sorted, oracle)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 10 {
		shuffled := append([]TradeEvent(nil), sorted...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := NewEngine().ComputePortfolio(shuffled, oracle)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("shuffle #%d: ComputePortfolio() = %+v, want %+v", i, got, want)
		}
	}

	p, _ := want.Position("BONK")
	// FIFO consumed tx1 (cost 1.0) not tx2 (cost 3.0).
	assertMoney(t, "BONK Realized", p.Realized, SOL(150))
}

func TestComputePortfolio_DoesNotModifyInput(t *testing.T) {
	events := []TradeEvent{
		sell("BONK", 10, 20, 5, "tx2"),
		buy("BONK", 10, 10, 0, "tx1"),
	}
	NewEngine().ComputePortfolio(events, nil)
	if events[0].Ref != "tx2" || events[1].Ref != "tx1" {
		t.Errorf("ComputePortfolio() reordered its input: %v, %v", events[0].Ref, events[1].Ref)
	}
}

func TestComputePortfolio_Deduplicates(t *testing.T) {
	e := buy("BONK", 100, 100, 0, "tx1")
	r := NewEngine().ComputePortfolio([]TradeEvent{e, e, e}, nil)
	p, _ := r.Position("BONK")
	assertQuantity(t, "Balance", p.Balance, Q(100))
	if got, want := r.Totals.Trades, 1; got != want {
		t.Errorf("Totals.Trades = %d, want %d", got, want)
	}
}

func TestComputePortfolio_OverSell(t *testing.T) {
	r := NewEngine().ComputePortfolio([]TradeEvent{sell("BONK", 10, 20, 0, "tx1")}, nil)

	p, _ := r.Position("BONK")
	assertMoney(t, "Realized", p.Realized, SOL(20))
	assertQuantity(t, "Balance", p.Balance, Q(0))
	assertQuantity(t, "OverSold", p.OverSold, Q(10))
	if !p.HasAnomaly() {
		t.Errorf("HasAnomaly() = false, want true")
	}
	if got, want := r.Totals.Anomalies, 1; got != want {
		t.Errorf("Totals.Anomalies = %d, want %d", got, want)
	}
	if p.Balance.IsNegative() {
		t.Errorf("Balance = %v, must never be negative", p.Balance)
	}
}

func TestComputePortfolio_PartialOverSell(t *testing.T) {
	r := NewEngine().ComputePortfolio([]TradeEvent{
		buy("BONK", 10, 10, 0, "tx1"),  // 10 @ 1
		sell("BONK", 15, 45, 1, "tx2"), // 15 @ 3
	}, nil)

	p, _ := r.Position("BONK")
	// 10*(3-1) on the lot + 5*3 at zero cost basis.
	assertMoney(t, "Realized", p.Realized, SOL(35))
	assertQuantity(t, "OverSold", p.OverSold, Q(5))
	assertQuantity(t, "Balance", p.Balance, Q(0))
}

func TestComputePortfolio_UnrealizedUsesRemainingLots(t *testing.T) {
	events := []TradeEvent{
		buy("BONK", 100, 100, 0, "tx1"), // 100 @ 1.0
		buy("BONK", 100, 300, 1, "tx2"), // 100 @ 3.0
		sell("BONK", 100, 400, 2, "tx3"),
	}
	r := NewEngine().ComputePortfolio(events, prices(map[string]float64{"BONK": 5}))

	p, _ := r.Position("BONK")
	assertMoney(t, "AverageBuyPrice", p.AverageBuyPrice, SOL(2))
	assertMoney(t, "RemainingUnitCost", p.RemainingUnitCost, SOL(3))
	assertMoney(t, "Unrealized", p.Unrealized, SOL(200))
	assertMoney(t, "MarketValue", p.MarketValue, SOL(500))
	assertMoney(t, "Totals.Unrealized", r.Totals.Unrealized, SOL(200))
	assertMoney(t, "Totals.Realized", r.Totals.Realized, SOL(300))
}

func TestComputePortfolio_AverageCost(t *testing.T) {
	events := []TradeEvent{
		buy("BONK", 100, 100, 0, "tx1"),
		buy("BONK", 100, 300, 1, "tx2"),
		sell("BONK", 100, 400, 2, "tx3"),
	}
	r := NewEngine(WithMethod(AverageCost)).ComputePortfolio(events, prices(map[string]float64{"BONK": 5}))

	p, _ := r.Position("BONK")
	assertMoney(t, "Realized", p.Realized, SOL(200))
	assertMoney(t, "RemainingUnitCost", p.RemainingUnitCost, SOL(2))
	assertMoney(t, "Unrealized", p.Unrealized, SOL(300))
}

func TestComputePortfolio_PercentGuard(t *testing.T) {
	// Airdropped tokens: no buy, zero cost basis.
	r := NewEngine().ComputePortfolio([]TradeEvent{sell("AIR", 1000, 7, 0, "tx1")}, nil)

	p, _ := r.Position("AIR")
	assertMoney(t, "Realized", p.Realized, SOL(7))
	if p.RealizedPercent != 0 {
		t.Errorf("RealizedPercent = %v, want 0", p.RealizedPercent)
	}
	if p.UnrealizedPercent != 0 {
		t.Errorf("UnrealizedPercent = %v, want 0", p.UnrealizedPercent)
	}
}

func TestComputePortfolio_PriceUnavailable(t *testing.T) {
	events := []TradeEvent{
		buy("BONK", 100, 100, 0, "tx1"),
		buy("WIF", 10, 10, 1, "tx2"),
	}
	r := NewEngine().ComputePortfolio(events, prices(map[string]float64{"BONK": 2}))

	wif, _ := r.Position("WIF")
	if !wif.PriceUnavailable {
		t.Errorf("WIF.PriceUnavailable = false, want true")
	}
	assertMoney(t, "WIF.Unrealized", wif.Unrealized, SOL(0))

	bonk, _ := r.Position("BONK")
	if bonk.PriceUnavailable {
		t.Errorf("BONK.PriceUnavailable = true, want false")
	}
	assertMoney(t, "Totals.Unrealized", r.Totals.Unrealized, SOL(100))
	if got, want := r.Totals.PriceUnavailable, 1; got != want {
		t.Errorf("Totals.PriceUnavailable = %d, want %d", got, want)
	}
	if !r.Totals.UnrealizedIsPartial() {
		t.Errorf("Totals.UnrealizedIsPartial() = false, want true")
	}
}

func TestComputePortfolio_IgnoresPriceInOtherCurrency(t *testing.T) {
	oracle := PriceFunc(func(token string) (Money, bool) { return M(2, "ETH"), true })
	r := NewEngine().ComputePortfolio([]TradeEvent{buy("BONK", 1, 1, 0, "tx1")}, oracle)
	p, _ := r.Position("BONK")
	if !p.PriceUnavailable {
		t.Errorf("PriceUnavailable = false, want true for a price in ETH")
	}
}

func TestComputePortfolio_SkipsEventsInOtherCurrency(t *testing.T) {
	events := []TradeEvent{
		buy("BONK", 100, 1, 0, "tx1"),
		sell("BONK", 50, 2, 10, "tx2"),
		buy("WIF", 10, 1, 20, "tx3"),
	}
	ethBuy := buy("BONK", 100, 1, 5, "tx4")
	ethBuy.QuoteAmount = M(1, "ETH")
	ethOnly := buy("PEPE", 1, 1, 30, "tx5")
	ethOnly.QuoteAmount = M(0.5, "ETH")
	events = append(events, ethBuy, ethOnly)

	r := NewEngine().ComputePortfolio(events, prices(map[string]float64{"BONK": 0.02, "WIF": 0.1}))

	bonk, _ := r.Position("BONK")
	assertQuantity(t, "BONK.Balance", bonk.Balance, Q(50))
	assertMoney(t, "BONK.Realized", bonk.Realized, SOL(1.5))
	if got, want := bonk.Skipped, 1; got != want {
		t.Errorf("BONK.Skipped = %d, want %d", got, want)
	}
	wif, _ := r.Position("WIF")
	if wif.Skipped != 0 {
		t.Errorf("WIF.Skipped = %d, want 0", wif.Skipped)
	}
	pepe, ok := r.Position("PEPE")
	if !ok {
		t.Fatalf("Position(PEPE) not found, want a position flagged with its skipped event")
	}
	if pepe.Skipped != 1 || pepe.Trades != 0 {
		t.Errorf("PEPE Skipped, Trades = %d, %d, want 1, 0", pepe.Skipped, pepe.Trades)
	}

	if got, want := r.Totals.Skipped, 2; got != want {
		t.Errorf("Totals.Skipped = %d, want %d", got, want)
	}
	if got, want := len(r.Events), 3; got != want {
		t.Errorf("len(Events) = %d, want %d", got, want)
	}
	assertMoney(t, "Totals.Realized", r.Totals.Realized, SOL(1.5))
}

func TestComputePortfolio_Totals(t *testing.T) {
	events := []TradeEvent{
		buy("A", 10, 10, 0, "tx1"),
		sell("A", 10, 20, 1, "tx2"),
		buy("B", 10, 10, 2, "tx3"),
		buy("C", 10, 10, 3, "tx4"),
	}
	r := NewEngine().ComputePortfolio(events, prices(map[string]float64{"B": 1, "C": 2}))

	if got, want := r.Totals.Active, 2; got != want {
		t.Errorf("Totals.Active = %d, want %d", got, want)
	}
	if got, want := r.Totals.Closed, 1; got != want {
		t.Errorf("Totals.Closed = %d, want %d", got, want)
	}
	if got, want := r.Totals.Trades, 4; got != want {
		t.Errorf("Totals.Trades = %d, want %d", got, want)
	}
	assertMoney(t, "Totals.Realized", r.Totals.Realized, SOL(10))
	assertMoney(t, "Totals.Unrealized", r.Totals.Unrealized, SOL(10))
	assertMoney(t, "Totals.Total()", r.Totals.Total(), SOL(20))
	if got, want := len(r.Active()), 2; got != want {
		t.Errorf("len(Active()) = %d, want %d", got, want)
	}
	if got, want := len(r.Closed()), 1; got != want {
		t.Errorf("len(Closed()) = %d, want %d", got, want)
	}
}

func TestComputePortfolio_Empty(t *testing.T) {
	r := NewEngine().ComputePortfolio(nil, nil)
	if len(r.Positions) != 0 {
		t.Errorf("len(Positions) = %d, want 0", len(r.Positions))
	}
	assertMoney(t, "Totals.Realized", r.Totals.Realized, SOL(0))
	if r.Totals.Active != 0 || r.Totals.Closed != 0 || r.Totals.Trades != 0 {
		t.Errorf("Totals = %+v, want zero counts", r.Totals)
	}
}

func TestComputePortfolio_ParallelMatchesSequential(t *testing.T) {
	var events []TradeEvent
	tokens := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for i := range 200 {
		token := tokens[i%len(tokens)]
		ref := string(rune('a'+i%26)) + string(rune('a'+i/26))
		if i%3 == 2 {
			events = append(events, sell(token, 3, float64(i%7+1), i, ref))
		} else {
			events = append(events, buy(token, 2, float64(i%5+1), i, ref))
		}
	}
	oracle := prices(map[string]float64{"A": 1, "B": 2, "C": 0.5, "E": 3})

	want := NewEngine().ComputePortfolio(events, oracle)
	got := NewEngine(WithParallelism(4)).ComputePortfolio(events, oracle)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parallel ComputePortfolio() differs from sequential one")
	}
}
