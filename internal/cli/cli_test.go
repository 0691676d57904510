package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/storage"
	"github.com/pfrederiksen/devent/internal/validate"
)

// session runs commands against one data directory.
type session struct {
	t   *testing.T
	dir string
}

func newSession(t *testing.T) *session {
	t.Helper()
	for _, k := range []string{
		"DEVENT_BACKEND", "DEVENT_DATA_DIR", "DEVENT_QUOTA_BYTES", "DEVENT_ENCRYPTION_KEY",
		"RABBITMQ_URL", "DEVENT_LOG_LEVEL", "DEVENT_SEED",
	} {
		t.Setenv(k, "")
	}
	return &session{t: t, dir: t.TempDir()}
}

func (s *session) run(args ...string) (string, error) {
	s.t.Helper()
	stdout, _, err := s.runLogged(args...)
	return stdout, err
}

// runLogged is run that also returns what the command logged to stderr.
func (s *session) runLogged(args ...string) (string, string, error) {
	s.t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--data-dir", s.dir,
		"--backend", "file",
		"--env-file", filepath.Join(s.dir, "absent.env"),
	}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustJSON runs a command with --format json and decodes its output into v.
func (s *session) mustJSON(v any, args ...string) {
	s.t.Helper()
	out, err := s.run(append([]string{"--format", "json"}, args...)...)
	if err != nil {
		s.t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		s.t.Fatalf("%s: decoding output: %v\n%s", strings.Join(args, " "), err, out)
	}
}

func (s *session) events(args ...string) *EventList {
	s.t.Helper()
	var list EventList
	s.mustJSON(&list, append([]string{"events", "list"}, args...)...)
	return &list
}

func (s *session) addEvent(title string, price int) event.Event {
	s.t.Helper()
	var evt event.Event
	s.mustJSON(&evt, "events", "add",
		"--title", title,
		"--date", "2030-06-01",
		"--location", "Jakarta",
		"--category", "Workshop",
		"--price", fmt.Sprint(price),
		"--description", "Hands-on session")
	return evt
}

func registrationArgs(id event.ID, email string) []string {
	return []string{
		"--event", id.String(),
		"--name", "Budi Santoso",
		"--email", email,
		"--phone", "081234567890",
		"--tickets", "2",
		"--address", "Jl. Sudirman 1, Jakarta",
	}
}

func TestInit_SeedsSampleEvents(t *testing.T) {
	s := newSession(t)

	var result map[string]any
	s.mustJSON(&result, "init")
	if got := result["events"]; got != float64(storage.MinSeededEvents) {
		t.Errorf("events = %v, want %d", got, storage.MinSeededEvents)
	}

	// A second session keeps the stored collection.
	if list := s.events(); list.EventCount != storage.MinSeededEvents {
		t.Errorf("EventCount = %d, want %d", list.EventCount, storage.MinSeededEvents)
	}
}

func TestInit_LogsExternalChange(t *testing.T) {
	s := newSession(t)
	if _, err := s.run("init"); err != nil {
		t.Fatal(err)
	}

	_, logged, err := s.runLogged("init")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(logged, "Storage changed outside devent") {
		t.Fatalf("own write reported as external change:\n%s", logged)
	}

	path := filepath.Join(s.dir, "devent.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	_, logged, err = s.runLogged("init")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logged, "Storage changed outside devent") {
		t.Errorf("external edit not logged:\n%s", logged)
	}
}

func TestInit_SeedDisabled(t *testing.T) {
	s := newSession(t)
	t.Setenv("DEVENT_SEED", "false")

	if list := s.events(); list.EventCount != 0 {
		t.Errorf("EventCount = %d, want 0", list.EventCount)
	}
}

func TestEventsList_FilterAndSort(t *testing.T) {
	s := newSession(t)

	free := s.events("--free")
	if free.EventCount != 1 || free.Events[0].Title != "Startup Pitch Competition" {
		t.Errorf("--free returned %+v", free.Events)
	}
	if free.Filter == "" {
		t.Error("Filter description should be set when filtering")
	}

	sorted := s.events("--sort", "price-desc")
	for i := 1; i < len(sorted.Events); i++ {
		if sorted.Events[i-1].Price < sorted.Events[i].Price {
			t.Fatalf("events not sorted by price desc: %v then %v", sorted.Events[i-1].Price, sorted.Events[i].Price)
		}
	}

	cheap := s.events("--max-price", "200000", "--sort", "price-asc")
	for _, evt := range cheap.Events {
		if evt.Price > 200000 {
			t.Errorf("%s costs %d, above --max-price", evt.Title, evt.Price)
		}
	}

	if _, err := s.run("events", "list", "--sort", "popularity"); err == nil {
		t.Error("expected error for unknown sort key")
	}
}

func TestEventsAddUpdateShow(t *testing.T) {
	s := newSession(t)

	_, err := s.run("events", "add", "--title", "No date", "--location", "x", "--category", "y", "--description", "z")
	if !errors.Is(err, validate.ErrInvalid) {
		t.Fatalf("add without date: err = %v, want ErrInvalid", err)
	}

	added := s.addEvent("Go Workshop", 100000)
	if added.ID == 0 {
		t.Fatal("added event has no id")
	}

	var updated event.Event
	s.mustJSON(&updated, "events", "update", added.ID.String(), "--price", "0")
	if updated.Price != 0 || updated.Title != "Go Workshop" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Error("UpdatedAt not set")
	}

	if _, err := s.run("events", "update", added.ID.String()); err == nil {
		t.Error("update without fields should fail")
	}
	if _, err := s.run("events", "update", added.ID.String(), "--date", "someday"); !errors.Is(err, validate.ErrInvalid) {
		t.Errorf("update with bad date: err = %v, want ErrInvalid", err)
	}

	var detail EventDetail
	s.mustJSON(&detail, "events", "show", added.ID.String())
	if detail.Event.Price != 0 {
		t.Errorf("show price = %d, want 0", detail.Event.Price)
	}

	if _, err := s.run("events", "show", "42"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("show unknown: err = %v, want ErrNotFound", err)
	}
}

func TestRegister_FreeAndDuplicate(t *testing.T) {
	s := newSession(t)
	evt := s.addEvent("Community Meetup", 0)

	var reg event.Registration
	s.mustJSON(&reg, append([]string{"register"}, registrationArgs(evt.ID, "budi@example.com")...)...)
	if reg.PaymentStatus != event.PaymentFree {
		t.Errorf("PaymentStatus = %q, want %q", reg.PaymentStatus, event.PaymentFree)
	}
	if !strings.HasPrefix(reg.RegistrationID, "REG-") {
		t.Errorf("RegistrationID = %q", reg.RegistrationID)
	}

	_, err := s.run(append([]string{"register"}, registrationArgs(evt.ID, "BUDI@example.com")...)...)
	if !errors.Is(err, storage.ErrDuplicateRegistration) {
		t.Fatalf("err = %v, want ErrDuplicateRegistration", err)
	}
	if code := ExitCode(err); code != ExitDuplicate {
		t.Errorf("ExitCode = %d, want %d", code, ExitDuplicate)
	}

	var regs []event.Registration
	s.mustJSON(&regs, "registrations", "list", "--event", evt.ID.String())
	if len(regs) != 1 {
		t.Errorf("got %d registrations, want 1", len(regs))
	}
}

func TestCheckout_PaidFlow(t *testing.T) {
	s := newSession(t)
	evt := s.addEvent("Paid Workshop", 250000)

	if _, err := s.run("checkout", "confirm"); err == nil {
		t.Fatal("confirm without a checkout should fail")
	}

	var pending event.Registration
	s.mustJSON(&pending, append([]string{"checkout", "start"}, registrationArgs(evt.ID, "siti@example.com")...)...)
	if pending.TotalPrice != 500000 {
		t.Errorf("TotalPrice = %d, want 500000", pending.TotalPrice)
	}

	if _, err := s.run("checkout", "complete-free"); err == nil {
		t.Error("complete-free should fail for a paid registration")
	}
	if _, err := s.run("checkout", "method", "ovo"); err == nil {
		t.Error("unknown wallet should fail")
	}

	var choice struct {
		Method string       `json:"method"`
		Amount event.Amount `json:"amount"`
	}
	s.mustJSON(&choice, "checkout", "method", "dana")
	if choice.Method != "dana" {
		t.Errorf("Method = %q", choice.Method)
	}
	if choice.Amount < 500000 || choice.Amount >= 500100 {
		t.Errorf("Amount = %d, want 500000..500099", choice.Amount)
	}

	var status CheckoutStatus
	s.mustJSON(&status, "checkout", "status")
	if status.State != "pending" || status.Amount != choice.Amount {
		t.Errorf("status = %+v", status)
	}

	var paid event.Registration
	s.mustJSON(&paid, "checkout", "confirm")
	if paid.PaymentStatus != event.PaymentCompleted || paid.PaymentAmount != choice.Amount {
		t.Errorf("paid = %+v", paid)
	}

	var shown event.Registration
	s.mustJSON(&shown, "registrations", "show", paid.RegistrationID)
	if shown.Email != "siti@example.com" {
		t.Errorf("Email = %q", shown.Email)
	}
}

func TestEventsDelete_Cascades(t *testing.T) {
	s := newSession(t)
	evt := s.addEvent("Short Lived", 0)
	if _, err := s.run(append([]string{"register"}, registrationArgs(evt.ID, "a@example.com")...)...); err != nil {
		t.Fatal(err)
	}

	var result map[string]any
	s.mustJSON(&result, "events", "delete", evt.ID.String())
	if result["registrations_removed"] != float64(1) {
		t.Errorf("registrations_removed = %v, want 1", result["registrations_removed"])
	}

	var regs []event.Registration
	s.mustJSON(&regs, "registrations", "list")
	if len(regs) != 0 {
		t.Errorf("got %d registrations after cascade delete", len(regs))
	}
}

func TestFavorites(t *testing.T) {
	s := newSession(t)
	evt := s.addEvent("Favorite Thing", 0)
	id := evt.ID.String()

	var added map[string]any
	s.mustJSON(&added, "favorites", "add", id)
	if added["added"] != true {
		t.Errorf("first add = %v", added)
	}
	s.mustJSON(&added, "favorites", "add", id)
	if added["added"] != false {
		t.Errorf("second add = %v", added)
	}

	var list EventList
	s.mustJSON(&list, "favorites", "list")
	if list.EventCount != 1 || list.Events[0].ID != evt.ID {
		t.Errorf("favorites = %+v", list.Events)
	}

	if _, err := s.run("favorites", "add", "7"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("favoriting unknown event: err = %v", err)
	}

	s.mustJSON(&added, "favorites", "remove", id)
	s.mustJSON(&list, "favorites", "list")
	if list.EventCount != 0 {
		t.Errorf("favorites after remove = %d", list.EventCount)
	}
}

func TestExportImport(t *testing.T) {
	src := newSession(t)
	evt := src.addEvent("Exported", 0)
	if _, err := src.run(append([]string{"register"}, registrationArgs(evt.ID, "x@example.com")...)...); err != nil {
		t.Fatal(err)
	}

	file := filepath.Join(t.TempDir(), "backup.json")
	if _, err := src.run("export", "--output", file); err != nil {
		t.Fatal(err)
	}

	dst := &session{t: t, dir: t.TempDir()}
	t.Setenv("DEVENT_SEED", "false")

	var result ImportResult
	dst.mustJSON(&result, "import", file)
	if len(result.Added) != storage.MinSeededEvents+1 {
		t.Errorf("added %d events, want %d", len(result.Added), storage.MinSeededEvents+1)
	}

	var regs []event.Registration
	dst.mustJSON(&regs, "registrations", "list")
	if len(regs) != 1 || regs[0].Email != "x@example.com" {
		t.Errorf("imported registrations = %+v", regs)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := dst.run("import", bad); err == nil {
		t.Error("expected error for malformed import")
	}
}

func TestImportHTML(t *testing.T) {
	s := newSession(t)
	t.Setenv("DEVENT_SEED", "false")
	fixture := "../../testdata/fixtures/event_cards.html"

	var result ImportResult
	s.mustJSON(&result, "import-html", fixture)
	if len(result.Added) != 3 {
		t.Fatalf("added %d events, want 3", len(result.Added))
	}

	s.mustJSON(&result, "import-html", fixture)
	if len(result.Added) != 0 {
		t.Errorf("re-import added %d events, want 0", len(result.Added))
	}
}

func TestEventsICS(t *testing.T) {
	s := newSession(t)
	evt := s.addEvent("Calendar Entry", 0)

	out, err := s.run("events", "ics", evt.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Calendar Entry", "DTSTART;VALUE=DATE:20300601"} {
		if !strings.Contains(out, want) {
			t.Errorf("ics output missing %q", want)
		}
	}
}

func TestStats(t *testing.T) {
	s := newSession(t)

	var stats StatsResult
	s.mustJSON(&stats, "stats", "--metrics")
	if stats.TotalEvents != storage.MinSeededEvents {
		t.Errorf("TotalEvents = %d", stats.TotalEvents)
	}
	if len(stats.Categories) != stats.TotalCategories {
		t.Errorf("Categories = %d, TotalCategories = %d", len(stats.Categories), stats.TotalCategories)
	}
	if stats.Metrics == nil {
		t.Error("--metrics should include a snapshot")
	}
}

func TestInvalidFormat(t *testing.T) {
	s := newSession(t)

	if _, err := s.run("--format", "xml", "stats"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitError},
		{fmt.Errorf("completing registration: %w", storage.ErrDuplicateRegistration), ExitDuplicate},
		{storage.ErrNotFound, ExitError},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
