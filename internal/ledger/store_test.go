package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/storage"
	"billtracker/internal/storage/memory"
)

type failingKV struct {
	*memory.Store
	failWrites bool
	failGet    map[string]bool
}

func (f *failingKV) SetMany(ctx context.Context, entries map[string]string) error {
	if f.failWrites {
		return errors.New("quota exceeded")
	}
	return f.Store.SetMany(ctx, entries)
}

func (f *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet[key] {
		return "", false, errors.New("store unavailable")
	}
	return f.Store.Get(ctx, key)
}

type recordingObserver struct {
	changes []Change
}

func (r *recordingObserver) LedgerChanged(_ context.Context, c Change) {
	r.changes = append(r.changes, c)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore(t *testing.T, kv storage.KV, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	base := []Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs())}
	s, err := Open(context.Background(), kv, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, clock
}

func rentDraft() core.BillDraft {
	return core.BillDraft{
		Name:     "Rent",
		Amount:   core.Money{Cents: 120000},
		DueDate:  core.NewDate(2024, 3, 1),
		Category: "Housing",
		IsPaid:   true,
	}
}

func TestDefaults(t *testing.T) {
	s, _ := newTestStore(t, memory.New())
	if got := s.Categories(); strings.Join(got, ",") != strings.Join(core.DefaultCategories, ",") {
		t.Fatalf("categories = %v", got)
	}
	if len(s.Bills()) != 0 || len(s.Notes()) != 0 || s.Income().Cents != 0 {
		t.Fatalf("expected empty ledger")
	}
}

func TestAddBill(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s, _ := newTestStore(t, memory.New(), WithObserver(obs))

	b, err := s.AddBill(ctx, rentDraft())
	if err != nil {
		t.Fatalf("AddBill: %v", err)
	}
	if b.ID == "" || b.Name != "Rent" || b.Amount.Cents != 120000 || b.Category != "Housing" || !b.IsPaid {
		t.Fatalf("unexpected bill %+v", b)
	}
	got, err := s.Bill(b.ID)
	if err != nil || got != b {
		t.Fatalf("Bill(%s) = %+v, %v", b.ID, got, err)
	}

	b2, _ := s.AddBill(ctx, rentDraft())
	if b2.ID == b.ID {
		t.Fatalf("ids must be unique")
	}
	if len(obs.changes) != 2 || obs.changes[0].EntityID != b.ID || len(obs.changes[1].Snapshot.Bills) != 2 {
		t.Fatalf("unexpected changes %+v", obs.changes)
	}
}

func TestAddBillValidation(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s, _ := newTestStore(t, kv)

	bad := rentDraft()
	bad.Name = "  "
	if _, err := s.AddBill(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	bad = rentDraft()
	bad.Category = "Brand New"
	bad.DueDate = core.Date{}
	if _, err := s.AddBill(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(s.Bills()) != 0 {
		t.Fatalf("failed add must not change bills")
	}
	for _, c := range s.Categories() {
		if c == "Brand New" {
			t.Fatalf("failed add must not create its category")
		}
	}
	if len(kv.Snapshot()) != 0 {
		t.Fatalf("failed add must not persist")
	}
}

func TestAddBillCreatesCategoryOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())

	d := rentDraft()
	d.Category = "Pets"
	for i := 0; i < 3; i++ {
		if _, err := s.AddBill(ctx, d); err != nil {
			t.Fatalf("AddBill: %v", err)
		}
	}
	count := 0
	for _, c := range s.Categories() {
		if c == "Pets" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("Pets appears %d times", count)
	}
}

func TestUpdateBill(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())
	b, _ := s.AddBill(ctx, rentDraft())

	d := rentDraft()
	d.Name = "Rent (new lease)"
	d.Amount = core.Money{Cents: 130000}
	d.IsPaid = false
	updated, err := s.UpdateBill(ctx, b.ID, d)
	if err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}
	if updated.ID != b.ID || updated.Name != "Rent (new lease)" || updated.Amount.Cents != 130000 || updated.IsPaid {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := s.UpdateBill(ctx, "missing", d); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.UpdateBill(ctx, b.ID, core.BillDraft{}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteBill(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())
	a, _ := s.AddBill(ctx, rentDraft())
	b, _ := s.AddBill(ctx, rentDraft())

	if err := s.DeleteBill(ctx, a.ID); err != nil {
		t.Fatalf("DeleteBill: %v", err)
	}
	if len(s.Bills()) != 1 || s.Bills()[0].ID != b.ID {
		t.Fatalf("unexpected bills %+v", s.Bills())
	}
	if _, err := s.Bill(a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteBill(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestToggleBillPaidIsItsOwnInverse(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())
	b, _ := s.AddBill(ctx, rentDraft())

	first, err := s.ToggleBillPaid(ctx, b.ID)
	if err != nil || first.IsPaid == b.IsPaid {
		t.Fatalf("first toggle = %+v, %v", first, err)
	}
	second, err := s.ToggleBillPaid(ctx, b.ID)
	if err != nil || second.IsPaid != b.IsPaid {
		t.Fatalf("second toggle = %+v, %v", second, err)
	}
	if _, err := s.ToggleBillPaid(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNotes(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, memory.New())

	n, err := s.AddNote(ctx, "Landlord", "call about\nthe heater")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if !n.CreatedAt.Equal(n.UpdatedAt) || n.Content != "call about\nthe heater" {
		t.Fatalf("unexpected note %+v", n)
	}

	clock.Advance(time.Hour)
	u, err := s.UpdateNote(ctx, n.ID, "Landlord", "heater fixed")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if !u.CreatedAt.Equal(n.CreatedAt) || !u.UpdatedAt.Equal(n.UpdatedAt.Add(time.Hour)) {
		t.Fatalf("timestamps wrong: created %v updated %v", u.CreatedAt, u.UpdatedAt)
	}

	if _, err := s.AddNote(ctx, "", "x"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}
	if _, err := s.AddNote(ctx, "x", ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for empty content, got %v", err)
	}
	if _, err := s.UpdateNote(ctx, "missing", "t", "c"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteNote(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := s.Note(n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteNote(ctx, n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())

	if err := s.AddCategory(ctx, "Pets"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if err := s.AddCategory(ctx, "Pets"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("duplicate should fail validation, got %v", err)
	}
	if err := s.AddCategory(ctx, "pets"); err != nil {
		t.Fatalf("names are case-sensitive: %v", err)
	}
	if err := s.AddCategory(ctx, " "); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("empty should fail validation, got %v", err)
	}
}

func TestDeleteCategoryReassigns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())

	d := rentDraft()
	d.Category = "Pets"
	b, _ := s.AddBill(ctx, d)
	other, _ := s.AddBill(ctx, rentDraft())

	moved, err := s.DeleteCategory(ctx, "Pets")
	if err != nil || moved != 1 {
		t.Fatalf("DeleteCategory = %d, %v", moved, err)
	}
	got, _ := s.Bill(b.ID)
	if got.Category != core.FallbackCategory {
		t.Fatalf("bill category = %q, want %q", got.Category, core.FallbackCategory)
	}
	if kept, _ := s.Bill(other.ID); kept.Category != "Housing" {
		t.Fatalf("unrelated bill changed: %+v", kept)
	}
	for _, c := range s.Categories() {
		if c == "Pets" {
			t.Fatalf("Pets should be gone")
		}
	}

	if _, err := s.DeleteCategory(ctx, "Pets"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.DeleteCategory(ctx, core.FallbackCategory); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("fallback category must not be deletable, got %v", err)
	}
}

func TestDeleteCategoryRestoresFallback(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	_ = kv.Set(ctx, storage.KeyCategories, `["Food"]`)
	_ = kv.Set(ctx, storage.KeyBills, `[{"id":"1","name":"Lunch","amount":12,"dueDate":"2024-03-01","category":"Food","isPaid":false}]`)
	s, _ := newTestStore(t, kv)

	if _, err := s.DeleteCategory(ctx, "Food"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if cats := s.Categories(); len(cats) != 1 || cats[0] != core.FallbackCategory {
		t.Fatalf("categories = %v", cats)
	}
}

func TestSetIncomeAndSummary(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())

	if err := s.SetIncome(ctx, core.Money{Cents: -1}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.SetIncome(ctx, core.Money{Cents: 250000}); err != nil {
		t.Fatalf("SetIncome: %v", err)
	}

	s.AddBill(ctx, rentDraft()) // paid 1200.00
	unpaid := rentDraft()
	unpaid.Name = "Power"
	unpaid.Amount = core.Money{Cents: 8990}
	unpaid.IsPaid = false
	s.AddBill(ctx, unpaid)

	sum := s.Summary()
	if sum.Income.Cents != 250000 || sum.TotalExpenses.Cents != 120000 || sum.RemainingBalance.Cents != 130000 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.RemainingBalance != sum.Income.Sub(sum.TotalExpenses) {
		t.Fatalf("remaining balance invariant broken")
	}
	if s.Outstanding().Cents != 8990 {
		t.Fatalf("outstanding = %d", s.Outstanding().Cents)
	}
}

func TestSummaryCanGoNegative(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())
	s.AddBill(ctx, rentDraft())
	sum := s.Summary()
	if sum.RemainingBalance.Cents != -120000 {
		t.Fatalf("remaining = %d", sum.RemainingBalance.Cents)
	}
}

func TestPersistenceFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{Store: memory.New()}
	obs := &recordingObserver{}
	s, _ := newTestStore(t, kv, WithObserver(obs))

	kv.failWrites = true
	b, err := s.AddBill(ctx, rentDraft())
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	var perr *core.PersistenceError
	if !errors.As(err, &perr) || perr.Op != "add_bill" {
		t.Fatalf("unexpected error %#v", err)
	}
	if b.ID == "" {
		t.Fatalf("bill should still be returned")
	}
	if len(s.Bills()) != 1 {
		t.Fatalf("in-memory state must keep the bill")
	}
	if len(obs.changes) != 0 {
		t.Fatalf("observer must not see unpersisted changes")
	}

	kv.failWrites = false
	if err := s.SetIncome(ctx, core.Money{Cents: 100}); err != nil {
		t.Fatalf("SetIncome: %v", err)
	}
	if raw, _, _ := kv.Store.Get(ctx, storage.KeyBills); !strings.Contains(raw, b.ID) {
		t.Fatalf("next successful write should include earlier bill, got %s", raw)
	}
}

func TestPersistedLayout(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s, _ := newTestStore(t, kv)

	s.SetIncome(ctx, core.MustParseAmount("2500"))
	s.AddBill(ctx, rentDraft())

	snap := kv.Snapshot()
	if snap[storage.KeyMonthlyIncome] != "2500" {
		t.Fatalf("monthlyIncome = %q", snap[storage.KeyMonthlyIncome])
	}
	wantBills := `[{"id":"id-1","name":"Rent","amount":1200.00,"dueDate":"2024-03-01","category":"Housing","isPaid":true}]`
	if snap[storage.KeyBills] != wantBills {
		t.Fatalf("bills = %s", snap[storage.KeyBills])
	}
	if snap[storage.KeyNotes] != `[]` {
		t.Fatalf("notes = %s", snap[storage.KeyNotes])
	}
	if !strings.HasPrefix(snap[storage.KeyCategories], `["Housing","Utilities"`) {
		t.Fatalf("categories = %s", snap[storage.KeyCategories])
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s, _ := newTestStore(t, kv)

	s.SetIncome(ctx, core.MustParseAmount("3100.55"))
	s.AddBill(ctx, rentDraft())
	d := rentDraft()
	d.Name = `Gym "Pro"`
	d.Category = "Fitness"
	d.IsPaid = false
	s.AddBill(ctx, d)
	s.AddNote(ctx, "n1", "first\nsecond")
	s.AddCategory(ctx, "Travel")

	reloaded, _ := newTestStore(t, kv)

	if reloaded.Income() != s.Income() {
		t.Fatalf("income %v != %v", reloaded.Income(), s.Income())
	}
	if fmt.Sprint(sortedIDs(reloaded.Bills())) != fmt.Sprint(sortedIDs(s.Bills())) {
		t.Fatalf("bill ids differ")
	}
	for _, b := range s.Bills() {
		got, err := reloaded.Bill(b.ID)
		if err != nil || got != b {
			t.Fatalf("bill %s: got %+v want %+v (%v)", b.ID, got, b, err)
		}
	}
	for _, n := range s.Notes() {
		got, err := reloaded.Note(n.ID)
		if err != nil || got.Title != n.Title || got.Content != n.Content ||
			!got.CreatedAt.Equal(n.CreatedAt) || !got.UpdatedAt.Equal(n.UpdatedAt) {
			t.Fatalf("note %s: got %+v want %+v (%v)", n.ID, got, n, err)
		}
	}
	if fmt.Sprint(SortCategories(reloaded.Categories())) != fmt.Sprint(SortCategories(s.Categories())) {
		t.Fatalf("categories differ: %v vs %v", reloaded.Categories(), s.Categories())
	}
}

func sortedIDs(bills []core.Bill) []string {
	ids := make([]string, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestLoadFallsBackPerKey(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{Store: memory.New(), failGet: map[string]bool{storage.KeyNotes: true}}
	_ = kv.Store.Set(ctx, storage.KeyBills, `not json`)
	_ = kv.Store.Set(ctx, storage.KeyMonthlyIncome, `1500`)
	_ = kv.Store.Set(ctx, storage.KeyCategories, `["A","B","A"]`)

	s := New(kv)
	err := s.Load(ctx)
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected joined persistence error, got %v", err)
	}
	if len(s.Bills()) != 0 {
		t.Fatalf("corrupt bills should fall back to empty")
	}
	if s.Income().Cents != 150000 {
		t.Fatalf("income should load independently, got %d", s.Income().Cents)
	}
	if got := s.Categories(); fmt.Sprint(got) != "[A B]" {
		t.Fatalf("categories = %v", got)
	}
}

func TestLoadAcceptsLegacyValues(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	_ = kv.Set(ctx, storage.KeyBills, `[{"id":"1709251200000","name":"Water","amount":45.5,"dueDate":"2024-03-05","category":"Water Co","isPaid":false}]`)
	_ = kv.Set(ctx, storage.KeyMonthlyIncome, `4200.75`)

	s, _ := newTestStore(t, kv)
	b, err := s.Bill("1709251200000")
	if err != nil || b.Amount.Cents != 4550 || b.DueDate.String() != "2024-03-05" {
		t.Fatalf("legacy bill = %+v (%v)", b, err)
	}
	found := false
	for _, c := range s.Categories() {
		if c == "Water Co" {
			found = true
		}
	}
	if !found {
		t.Fatalf("bill category should be restored into the set")
	}
	if s.Income().Cents != 420075 {
		t.Fatalf("income = %d", s.Income().Cents)
	}
}

type countingRecorder struct {
	ops      map[string]int
	failures int
}

func (c *countingRecorder) ObserveOperation(op, result string) { c.ops[op+":"+result]++ }

func (c *countingRecorder) ObservePersistFailure() { c.failures++ }

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &countingRecorder{ops: map[string]int{}}
	kv := &failingKV{Store: memory.New()}
	s, _ := newTestStore(t, kv, WithRecorder(rec))

	s.AddBill(ctx, rentDraft())
	s.AddBill(ctx, core.BillDraft{})
	s.DeleteBill(ctx, "missing")
	kv.failWrites = true
	s.AddNote(ctx, "t", "c")

	if rec.ops["add_bill:ok"] != 1 || rec.ops["add_bill:invalid"] != 1 ||
		rec.ops["delete_bill:not_found"] != 1 || rec.ops["add_note:persist_error"] != 1 || rec.failures != 1 {
		t.Fatalf("unexpected recordings %+v failures=%d", rec.ops, rec.failures)
	}
}

func TestLoadSkipsUnreadableBills(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	seeded := `[{"id":"1","name":"Rent","amount":1200,"dueDate":"2024-03-01","category":"Housing","isPaid":true},` +
		`{"id":"2","name":"Refund","amount":-50,"dueDate":"2024-03-02","category":"Other","isPaid":false}]`
	_ = kv.Set(ctx, storage.KeyBills, seeded)

	s := New(kv, WithIDGenerator(sequentialIDs()))
	err := s.Load(ctx)
	var perr *core.PersistenceError
	if !errors.As(err, &perr) || perr.Key != storage.KeyBills {
		t.Fatalf("expected a load error naming bills, got %v", err)
	}
	if bills := s.Bills(); len(bills) != 1 || bills[0].Name != "Rent" {
		t.Fatalf("readable bills should survive, got %+v", bills)
	}

	// A change to another collection leaves the stored bills alone.
	if err := s.SetIncome(ctx, core.Money{Cents: 300000}); err != nil {
		t.Fatalf("SetIncome: %v", err)
	}
	if raw, _, _ := kv.Get(ctx, storage.KeyBills); raw != seeded {
		t.Fatalf("stored bills rewritten by unrelated change: %s", raw)
	}
	if raw, _, _ := kv.Get(ctx, storage.KeyMonthlyIncome); raw != "3000" {
		t.Fatalf("income = %s", raw)
	}

	// Changing the bills writes the collection as it is now known.
	if _, err := s.AddBill(ctx, core.BillDraft{Name: "Water", Amount: core.Money{Cents: 4550},
		DueDate: core.NewDate(2024, 3, 5), Category: "Utilities"}); err != nil {
		t.Fatalf("AddBill: %v", err)
	}
	raw, _, _ := kv.Get(ctx, storage.KeyBills)
	if !strings.Contains(raw, `"Rent"`) || !strings.Contains(raw, `"Water"`) || strings.Contains(raw, `"Refund"`) {
		t.Fatalf("stored bills = %s", raw)
	}
}

func TestLoadHoldsCorruptKeyUntilChanged(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	_ = kv.Set(ctx, storage.KeyNotes, `{"not":"a list"}`)

	s := New(kv, WithIDGenerator(sequentialIDs()))
	if err := s.Load(ctx); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, err := s.AddBill(ctx, rentDraft()); err != nil {
		t.Fatalf("AddBill: %v", err)
	}
	if raw, _, _ := kv.Get(ctx, storage.KeyNotes); raw != `{"not":"a list"}` {
		t.Fatalf("corrupt notes overwritten: %s", raw)
	}
	if _, err := s.AddNote(ctx, "Call bank", "about the loan"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if raw, _, _ := kv.Get(ctx, storage.KeyNotes); !strings.Contains(raw, "Call bank") {
		t.Fatalf("notes not written after a note change: %s", raw)
	}
}

type ctxCheckingKV struct{ *memory.Store }

func (c ctxCheckingKV) SetMany(ctx context.Context, entries map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Store.SetMany(ctx, entries)
}

func TestPersistOutlivesCancelledRequest(t *testing.T) {
	kv := ctxCheckingKV{Store: memory.New()}
	s, _ := newTestStore(t, kv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.AddBill(ctx, rentDraft()); err != nil {
		t.Fatalf("AddBill on a cancelled request: %v", err)
	}
	if raw, ok, _ := kv.Get(context.Background(), storage.KeyBills); !ok || !strings.Contains(raw, "Rent") {
		t.Fatalf("bill not persisted: %q", raw)
	}
}

func TestChangesCarryApplyOrder(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s, clock := newTestStore(t, memory.New(), WithObserver(obs))

	s.AddBill(ctx, rentDraft())
	s.SetIncome(ctx, core.Money{Cents: 100})
	clock.Advance(time.Second)
	s.AddNote(ctx, "t", "c")

	if len(obs.changes) != 3 {
		t.Fatalf("changes = %d", len(obs.changes))
	}
	for i, c := range obs.changes {
		if c.Seq != uint64(i+1) {
			t.Errorf("change %d seq = %d", i, c.Seq)
		}
	}
	if !obs.changes[0].At.Equal(obs.changes[1].At) || !obs.changes[2].At.After(obs.changes[1].At) {
		t.Errorf("unexpected times %v %v %v", obs.changes[0].At, obs.changes[1].At, obs.changes[2].At)
	}
}

func TestDeleteCategoryTrimsName(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, memory.New())
	if err := s.AddCategory(ctx, " Pets "); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if _, err := s.DeleteCategory(ctx, " Pets"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	for _, c := range s.Categories() {
		if c == "Pets" {
			t.Fatal("Pets should be gone")
		}
	}
	if _, err := s.DeleteCategory(ctx, "  "); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("blank name: %v", err)
	}
}
