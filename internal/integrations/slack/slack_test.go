package slackbot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"carcare/internal/diagnosis"
	"carcare/internal/domain"
	"carcare/internal/telemetry"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

type classifierFunc func(ctx context.Context, description string) (domain.DiagnosisResult, error)

func (f classifierFunc) Classify(ctx context.Context, description string) (domain.DiagnosisResult, error) {
	return f(ctx, description)
}

type slackCall struct {
	method string
	form   url.Values
}

type mockSlack struct {
	mu    sync.Mutex
	calls []slackCall
}

func (m *mockSlack) record(method string, form url.Values) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, slackCall{method: method, form: form})
}

func (m *mockSlack) callsTo(method string) []slackCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []slackCall
	for _, c := range m.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func newMockSlackAPI(t *testing.T) (*slack.Client, *mockSlack) {
	t.Helper()
	resetUserCache(t)

	mock := &mockSlack{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/api/")
		_ = r.ParseForm()
		mock.record(method, r.Form)
		switch method {
		case "users.list":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"members": []map[string]any{
					{
						"id":        "U_BOB",
						"name":      "bob",
						"real_name": "Bob Real",
						"profile":   map[string]any{"display_name": "Bob Display"},
					},
				},
			})
		case "chat.postMessage":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.Form.Get("channel"), "ts": "1700000000.000100"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	t.Cleanup(server.Close)

	return slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/")), mock
}

func resetUserCache(t *testing.T) {
	t.Helper()
	userCache.Lock()
	userCache.users = nil
	userCache.fetchedAt = time.Time{}
	userCache.Unlock()
}

func TestHandleDiagnose_PostsEphemeralResult(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{}, api, diagnosis.NewDefaultMatcher(), nil)

	bot.handleSlashCommand(context.Background(), slack.SlashCommand{
		Command:   "/diagnose",
		Text:      "brakes squealing and grinding when I stop",
		ChannelID: "C1",
		UserID:    "U1",
	})

	calls := mock.callsTo("chat.postEphemeral")
	if len(calls) != 1 {
		t.Fatalf("expected 1 ephemeral post, got %d", len(calls))
	}
	form := calls[0].form
	if form.Get("channel") != "C1" || form.Get("user") != "U1" {
		t.Fatalf("unexpected target channel=%q user=%q", form.Get("channel"), form.Get("user"))
	}
	text := form.Get("text")
	for _, want := range []string{"Worn brake pads", "87%", "high"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in response text %q", want, text)
		}
	}
	if form.Get("blocks") == "" {
		t.Fatal("expected blocks in diagnosis response")
	}
}

func TestHandleDiagnose_FallbackRendersLikeDiagnosis(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{}, api, diagnosis.NewDefaultMatcher(), nil)

	bot.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/diagnose", Text: "the cupholder is sticky", ChannelID: "C1", UserID: "U1"})

	calls := mock.callsTo("chat.postEphemeral")
	if len(calls) != 1 {
		t.Fatalf("expected 1 ephemeral post, got %d", len(calls))
	}
	want := FormatDiagnosis("the cupholder is sticky", diagnosis.FallbackResult())
	if got := calls[0].form.Get("text"); got != want {
		t.Fatalf("fallback text = %q, want %q", got, want)
	}
}

func TestHandleDiagnose_BlankShowsUsage(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	called := false
	bot := New(Config{}, api, classifierFunc(func(ctx context.Context, description string) (domain.DiagnosisResult, error) {
		called = true
		return domain.DiagnosisResult{}, nil
	}), nil)

	bot.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/diagnose", Text: "   ", ChannelID: "C1", UserID: "U1"})

	if called {
		t.Fatal("blank text must not be classified")
	}
	calls := mock.callsTo("chat.postEphemeral")
	if len(calls) != 1 || calls[0].form.Get("text") != diagnoseUsage {
		t.Fatalf("expected usage message, got %+v", calls)
	}
}

func TestHandleDiagnose_UpstreamErrorIsExplicit(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{}, api, classifierFunc(func(ctx context.Context, description string) (domain.DiagnosisResult, error) {
		return domain.DiagnosisResult{}, fmt.Errorf("anthropic: %w", domain.ErrUpstreamUnavailable)
	}), nil)

	bot.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/diagnose", Text: "grinding", ChannelID: "C1", UserID: "U1"})

	calls := mock.callsTo("chat.postEphemeral")
	if len(calls) != 1 || calls[0].form.Get("text") != upstreamErrorText {
		t.Fatalf("expected upstream error message, got %+v", calls)
	}
}

func TestHandleSlashCommand_HelpAndUnknown(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{}, api, diagnosis.NewDefaultMatcher(), nil)

	bot.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/car-help", ChannelID: "C1", UserID: "U1"})
	bot.handleSlashCommand(context.Background(), slack.SlashCommand{Command: "/report", ChannelID: "C1", UserID: "U1"})

	calls := mock.callsTo("chat.postEphemeral")
	if len(calls) != 1 {
		t.Fatalf("expected only the help command to reply, got %d posts", len(calls))
	}
	if !strings.Contains(calls[0].form.Get("text"), "/diagnose") {
		t.Fatalf("help text should mention /diagnose: %q", calls[0].form.Get("text"))
	}
}

func TestHandleEventsAPI_WelcomesNewMember(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{}, api, diagnosis.NewDefaultMatcher(), nil)

	bot.handleEventsAPI(context.Background(), slackevents.EventsAPIEvent{
		Type: slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Data: &slackevents.MemberJoinedChannelEvent{User: "U2", Channel: "C2"},
		},
	})

	calls := mock.callsTo("chat.postEphemeral")
	if len(calls) != 1 {
		t.Fatalf("expected 1 welcome post, got %d", len(calls))
	}
	form := calls[0].form
	if form.Get("channel") != "C2" || form.Get("user") != "U2" {
		t.Fatalf("unexpected target channel=%q user=%q", form.Get("channel"), form.Get("user"))
	}
	if !strings.HasPrefix(form.Get("text"), "Welcome!") {
		t.Fatalf("unexpected welcome text %q", form.Get("text"))
	}
}

func TestNotifyAlerts_PostsWithMentionsOnCritical(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{SlackAlertChannelID: "C_ALERTS", SlackAlertMentions: []string{"Bob Display", "U0123ABCDE", "ghost"}}, api, nil, nil)

	alerts := []Alert{
		{ID: "brake-pad-warning", Level: telemetry.LevelWarning, Component: "Brakes", Message: "Brake pads worn - replacement needed soon"},
		{ID: "oil-pressure-critical", Level: telemetry.LevelCritical, Component: "Engine", Message: "Oil pressure critically low - stop engine immediately"},
	}
	if err := bot.NotifyAlerts(context.Background(), alerts); err != nil {
		t.Fatalf("NotifyAlerts returned error: %v", err)
	}

	posts := mock.callsTo("chat.postMessage")
	if len(posts) != 1 {
		t.Fatalf("expected 1 channel post, got %d", len(posts))
	}
	if posts[0].form.Get("channel") != "C_ALERTS" {
		t.Fatalf("unexpected channel %q", posts[0].form.Get("channel"))
	}
	text := posts[0].form.Get("text")
	if !strings.Contains(text, "<@U0123ABCDE>") || !strings.Contains(text, "<@U_BOB>") {
		t.Fatalf("expected resolved mentions in %q", text)
	}
	if strings.Index(text, "Oil pressure") > strings.Index(text, "Brake pads") {
		t.Fatalf("critical alerts must be listed first: %q", text)
	}
}

func TestNotifyAlerts_WarningsSkipUserLookup(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{SlackAlertChannelID: "C_ALERTS", SlackAlertMentions: []string{"Bob Display"}}, api, nil, nil)

	alerts := []Alert{
		{ID: "brake-pad-warning", Level: telemetry.LevelWarning, Component: "Brakes", Message: "Brake pads worn - replacement needed soon"},
	}
	if err := bot.NotifyAlerts(context.Background(), alerts); err != nil {
		t.Fatalf("NotifyAlerts returned error: %v", err)
	}

	if n := len(mock.callsTo("users.list")); n != 0 {
		t.Fatalf("expected no users.list call for warning-only alerts, got %d", n)
	}
	posts := mock.callsTo("chat.postMessage")
	if len(posts) != 1 {
		t.Fatalf("expected 1 channel post, got %d", len(posts))
	}
	if strings.Contains(posts[0].form.Get("text"), "<@") {
		t.Fatalf("warning-only post must not mention anyone: %q", posts[0].form.Get("text"))
	}
}

func TestNotifyAlerts_NoChannelIsNoop(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	bot := New(Config{}, api, nil, nil)

	if err := bot.NotifyAlerts(context.Background(), []Alert{{Level: telemetry.LevelCritical}}); err != nil {
		t.Fatalf("NotifyAlerts returned error: %v", err)
	}
	if len(mock.callsTo("chat.postMessage")) != 0 {
		t.Fatal("expected no post without an alert channel")
	}
}

func TestNotifyAlerts_PostError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	t.Cleanup(server.Close)
	api := slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/"))
	bot := New(Config{SlackAlertChannelID: "C_GONE"}, api, nil, nil)

	err := bot.NotifyAlerts(context.Background(), []Alert{{Level: telemetry.LevelWarning, Component: "Tires", Message: "low"}})
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}

func TestFormatAlerts_NoMentionsWithoutCritical(t *testing.T) {
	text := FormatAlerts([]Alert{{Level: telemetry.LevelWarning, Component: "Tires", Message: "Tire 1 pressure low (24 PSI)"}}, []string{"U_BOB"})
	if strings.Contains(text, "<@") {
		t.Fatalf("warnings alone must not mention anyone: %q", text)
	}
	if !strings.HasPrefix(text, "*Vehicle telemetry check:* 0 critical, 1 warning") {
		t.Fatalf("unexpected header: %q", text)
	}
}

func TestFormatDiagnosis(t *testing.T) {
	got := FormatDiagnosis("  squeal\n on   braking ", domain.DiagnosisResult{
		PossibleProblem: "Worn brake pads",
		SuggestedAction: "Replace pads",
		Severity:        domain.SeverityHigh,
		Confidence:      87,
	})
	want := "> squeal on braking\n*Possible problem:* Worn brake pads\n*Suggested action:* Replace pads\n*Severity:* :red_circle: high\n*Confidence:* 87%"
	if got != want {
		t.Fatalf("FormatDiagnosis = %q, want %q", got, want)
	}
}

func TestResolveMentions(t *testing.T) {
	api, mock := newMockSlackAPI(t)

	ids, unresolved, err := resolveMentions(context.Background(), api, zapNop(), []string{"@bob", "U0123ABCDE", "U0123ABCDE", "nobody", " "})
	if err != nil {
		t.Fatalf("resolveMentions returned error: %v", err)
	}
	if strings.Join(ids, ",") != "U0123ABCDE,U_BOB" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if len(unresolved) != 1 || unresolved[0] != "nobody" {
		t.Fatalf("unexpected unresolved %v", unresolved)
	}

	// Second lookup is served from the user cache.
	if _, _, err := resolveMentions(context.Background(), api, zapNop(), []string{"Bob Real"}); err != nil {
		t.Fatalf("resolveMentions returned error: %v", err)
	}
	if n := len(mock.callsTo("users.list")); n != 1 {
		t.Fatalf("expected users.list to be called once, got %d", n)
	}
}

func TestResolveMentions_IDsOnlySkipLookup(t *testing.T) {
	api, mock := newMockSlackAPI(t)
	ids, _, err := resolveMentions(context.Background(), api, zapNop(), []string{"W0123ABCDE"})
	if err != nil || len(ids) != 1 {
		t.Fatalf("unexpected result ids=%v err=%v", ids, err)
	}
	if len(mock.callsTo("users.list")) != 0 {
		t.Fatal("IDs alone must not list users")
	}
}

func TestIsLikelySlackID(t *testing.T) {
	tests := map[string]bool{
		"U0123ABCDE": true,
		"W0123ABCDE": true,
		"C0123ABCDE": false,
		"U012":       false,
		"u0123abcde": false,
		"bob":        false,
	}
	for in, want := range tests {
		if got := isLikelySlackID(in); got != want {
			t.Fatalf("isLikelySlackID(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNotifyAlerts_MentionLookupFailureStillPosts(t *testing.T) {
	resetUserCache(t)
	var posted atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/api/") {
		case "users.list":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "missing_scope"})
		default:
			posted.Store(true)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C_ALERTS", "ts": "1"})
		}
	}))
	t.Cleanup(server.Close)
	api := slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/"))
	bot := New(Config{SlackAlertChannelID: "C_ALERTS", SlackAlertMentions: []string{"bob"}}, api, nil, nil)

	err := bot.NotifyAlerts(context.Background(), []Alert{{Level: telemetry.LevelCritical, Component: "Engine", Message: "hot"}})
	if err != nil {
		t.Fatalf("NotifyAlerts returned error: %v", err)
	}
	if !posted.Load() {
		t.Fatal("alert must still be posted when mentions cannot be resolved")
	}
}
