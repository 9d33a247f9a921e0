package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/mailer"
	"github.com/autonomia2025/autonomia-suite-landing/internal/assistant"
	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/policy"
	"github.com/autonomia2025/autonomia-suite-landing/internal/repository"
	"github.com/autonomia2025/autonomia-suite-landing/internal/session"
	"github.com/autonomia2025/autonomia-suite-landing/internal/triage"
	"github.com/autonomia2025/autonomia-suite-landing/tests/helpers"
)

type published struct {
	SessionID string
	Event     domain.EventName
	Payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(sessionID string, event domain.EventName, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{SessionID: sessionID, Event: event, Payload: payload})
}

func (p *recordingPublisher) byName(event domain.EventName) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type testEnv struct {
	svc      *Service
	pub      *recordingPublisher
	client   *helpers.ScriptedClient
	repo     *repository.SQLiteStore
	sessions *session.Store
	evicted  []string
}

func newTestEnv(t *testing.T, client *helpers.ScriptedClient) *testEnv {
	t.Helper()

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	env := &testEnv{
		pub:    &recordingPublisher{},
		client: client,
		repo:   helpers.NewTestSQLiteStore(t),
	}
	env.sessions = session.NewStore(30*time.Minute, func(id string) { env.evicted = append(env.evicted, id) })

	prompts := config.DefaultPrompts()
	env.svc = New(
		env.sessions,
		env.repo,
		env.pub,
		assistant.NewExtractor(client, time.Second, prompts),
		assistant.NewGenerator(client, time.Second, 8, prompts),
		&triage.Chain{Primary: triage.ModelClassifier{}, Fallback: triage.NewKeywordClassifier(engine)},
		nil,
		DefaultOptions(),
	)
	return env
}

// greeted opens a session and runs the empty first turn.
func (e *testEnv) greeted(t *testing.T) string {
	t.Helper()
	snap := e.svc.OpenSession(context.Background())
	_, err := e.svc.Chat(context.Background(), snap.SessionID, "")
	require.NoError(t, err)
	e.pub.reset()
	return snap.SessionID
}

func labels(timeline []domain.TimelineEvent) []string {
	out := make([]string, len(timeline))
	for i, ev := range timeline {
		out[i] = ev.Label
	}
	return out
}

func TestFirstEmptyTurnGreetsWithoutExtraction(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("¡Hola! ¿Cómo te llamas?")})
	ctx := context.Background()

	snap := env.svc.OpenSession(ctx)
	assert.Equal(t, domain.StepGreeting, snap.Step)

	resp, err := env.svc.Chat(ctx, snap.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, "¡Hola! ¿Cómo te llamas?", resp.Reply)
	assert.Equal(t, domain.StepReason, resp.Step)
	assert.Empty(t, resp.Captured)
	assert.Equal(t, 0, env.client.Count(true))

	view, err := env.svc.GetSession(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.LabelSessionStarted, domain.LabelGreetingSent}, labels(view.Timeline))

	sess, _ := env.sessions.Get(snap.SessionID)
	msgs := sess.RecentMessages(10)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)

	timelineEvents := env.pub.byName(domain.EventTimeline)
	require.Len(t, timelineEvents, 1)
	assert.Equal(t, domain.LabelGreetingSent, timelineEvents[0].Payload.(domain.TimelineEvent).Label)
}

func TestExtractionBatchesPatientUpdate(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{
		Reply:   helpers.Static("Gracias Ana, ¿cuál es el motivo?"),
		Extract: helpers.Static(`{"name":"Ana","reason":null,"city":null,"preferred_time":null}`),
	})
	id := env.greeted(t)

	resp, err := env.svc.Chat(context.Background(), id, "Me llamo Ana")
	require.NoError(t, err)
	assert.Equal(t, domain.Captured{domain.FieldName: "Ana"}, resp.Captured)
	assert.Equal(t, domain.StepReason, resp.Step)

	updates := env.pub.byName(domain.EventPatientUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, domain.PatientUpdatedPayload{domain.FieldName: "Ana"}, updates[0].Payload)

	view, _ := env.svc.GetSession(context.Background(), id)
	detected := 0
	for _, ev := range view.Timeline {
		if ev.Label == "name detected" {
			detected++
			assert.Equal(t, domain.TimelinePatient, ev.Type)
		}
	}
	assert.Equal(t, 1, detected)

	// Same value again is not a change.
	env.pub.reset()
	_, err = env.svc.Chat(context.Background(), id, "Sí, Ana")
	require.NoError(t, err)
	assert.Empty(t, env.pub.byName(domain.EventPatientUpdated))
}

func TestKeywordTriageWhenExtractionUnavailable(t *testing.T) {
	cases := []struct {
		message string
		want    domain.Triage
	}{
		{"Es urgente, me duele la muela", domain.Triage{Priority: domain.PriorityHigh, Label: domain.LabelAppointment, SuggestedAction: domain.ActionEscalate}},
		{"Quisiera saber el precio de la limpieza", domain.Triage{Priority: domain.PriorityMedium, Label: domain.LabelAppointment, SuggestedAction: domain.ActionEscalate}},
		{"Buenas tardes", domain.DefaultTriage()},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("Entendido.")})
			id := env.greeted(t)

			_, err := env.svc.Chat(context.Background(), id, tc.message)
			require.NoError(t, err)

			view, _ := env.svc.GetSession(context.Background(), id)
			assert.Equal(t, tc.want, view.Triage)

			updates := env.pub.byName(domain.EventTriageUpdated)
			require.Len(t, updates, 1)
			assert.Equal(t, tc.want, updates[0].Payload)
		})
	}
}

func TestModelClassificationOverridesPerField(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{
		Reply:   helpers.Static("Entendido."),
		Extract: helpers.Static(`{"name":null,"priority":"Alta","label":null,"suggested_action":"Derivar a equipo"}`),
	})
	id := env.greeted(t)

	_, err := env.svc.Chat(context.Background(), id, "Buenas tardes")
	require.NoError(t, err)

	view, _ := env.svc.GetSession(context.Background(), id)
	assert.Equal(t, domain.Triage{
		Priority:        domain.PriorityHigh,
		Label:           domain.LabelInquiry,
		SuggestedAction: domain.ActionEscalate,
	}, view.Triage)
}

func TestConversationCompletesWithReplyGeneratorDown(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{
		Extract: helpers.Sequence(
			`{"name":"Ana"}`,
			`{"reason":"control anual"}`,
			`{"city":"Lima"}`,
			`{"preferred_time":"martes en la tarde"}`,
		),
	})
	ctx := context.Background()
	prompts := config.DefaultPrompts()

	snap := env.svc.OpenSession(ctx)
	resp, err := env.svc.Chat(ctx, snap.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, prompts.Fallback, resp.Reply)

	for _, msg := range []string{"Soy Ana", "Control anual", "Vivo en Lima"} {
		resp, err = env.svc.Chat(ctx, snap.SessionID, msg)
		require.NoError(t, err)
		assert.Equal(t, prompts.Fallback, resp.Reply)
		assert.Equal(t, domain.StepReason, resp.Step)
	}

	repliesBefore := env.client.Count(false)
	resp, err = env.svc.Chat(ctx, snap.SessionID, "El martes en la tarde")
	require.NoError(t, err)
	assert.Equal(t, prompts.Closing, resp.Reply)
	assert.Equal(t, domain.StepDone, resp.Step)
	assert.Len(t, resp.Captured, 4)
	assert.Equal(t, repliesBefore, env.client.Count(false), "closing turn must not generate")

	view, _ := env.svc.GetSession(ctx, snap.SessionID)
	assert.Equal(t, domain.LabelDataComplete, view.Timeline[len(view.Timeline)-1].Label)

	// A finished conversation answers with the terminal phrase and stays done.
	calls := len(env.client.Requests())
	resp, err = env.svc.Chat(ctx, snap.SessionID, "¿Sigues ahí?")
	require.NoError(t, err)
	assert.Equal(t, prompts.Terminal, resp.Reply)
	assert.Equal(t, domain.StepDone, resp.Step)
	assert.Equal(t, calls, len(env.client.Requests()))
}

func TestTurnCeilingClosesConversation(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("Cuéntame más.")})
	ctx := context.Background()
	snap := env.svc.OpenSession(ctx)

	var steps []domain.Step
	for i := 0; i < 10; i++ {
		resp, err := env.svc.Chat(ctx, snap.SessionID, "Buenas tardes")
		require.NoError(t, err)
		steps = append(steps, resp.Step)
	}

	for i := 0; i < 9; i++ {
		assert.Equal(t, domain.StepReason, steps[i], "turn %d", i+1)
	}
	assert.Equal(t, domain.StepDone, steps[9])

	view, _ := env.svc.GetSession(ctx, snap.SessionID)
	assert.Equal(t, domain.LabelConversationClosed, view.Timeline[len(view.Timeline)-1].Label)

	sess, _ := env.sessions.Get(snap.SessionID)
	assert.Equal(t, 10, sess.AssistantCount())
}

func TestStepNeverMovesBackward(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{
		Reply:   helpers.Static("Ok."),
		Extract: helpers.Static(`{"name":"Ana","reason":"dolor","city":"Lima","preferred_time":"mañana"}`),
	})
	ctx := context.Background()
	snap := env.svc.OpenSession(ctx)

	rank := map[domain.Step]int{domain.StepGreeting: 0, domain.StepReason: 1, domain.StepDone: 2}
	prev := snap.Step
	for _, msg := range []string{"", "Todo junto", "", "otra vez"} {
		resp, err := env.svc.Chat(ctx, snap.SessionID, msg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rank[resp.Step], rank[prev])
		prev = resp.Step
	}
	assert.Equal(t, domain.StepDone, prev)
}

func TestTimelineOrderWithinTurn(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{
		Reply:   helpers.Static("Ok."),
		Extract: helpers.Static(`{"name":"Ana","city":"Lima"}`),
	})
	id := env.greeted(t)

	_, err := env.svc.Chat(context.Background(), id, "Soy Ana de Lima")
	require.NoError(t, err)

	view, _ := env.svc.GetSession(context.Background(), id)
	assert.Equal(t, []string{
		domain.LabelSessionStarted,
		domain.LabelGreetingSent,
		domain.LabelMessageReceived,
		"name detected",
		"city detected",
	}, labels(view.Timeline))

	// Published timeline events follow the same order.
	var published []string
	for _, ev := range env.pub.byName(domain.EventTimeline) {
		published = append(published, ev.Payload.(domain.TimelineEvent).Label)
	}
	assert.Equal(t, []string{domain.LabelMessageReceived, "name detected", "city detected"}, published)
}

func TestBlankMessageInReasonStepSkipsCollaborators(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("¿Sigues ahí?")})
	id := env.greeted(t)

	resp, err := env.svc.Chat(context.Background(), id, "   \x00  ")
	require.NoError(t, err)
	assert.Equal(t, "¿Sigues ahí?", resp.Reply)
	assert.Equal(t, 0, env.client.Count(true))
	assert.Empty(t, env.pub.byName(domain.EventTriageUpdated))
	assert.Empty(t, env.pub.byName(domain.EventTimeline))

	sess, _ := env.sessions.Get(id)
	for _, m := range sess.RecentMessages(10) {
		assert.Equal(t, domain.RoleSystem, m.Role)
	}
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{})

	_, err := env.svc.Chat(context.Background(), "missing", "hola")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = env.svc.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, env.svc.SessionExists("missing"))
}

func TestSweepRemovesIdleSessionsAndSubscribers(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{})
	snap := env.svc.OpenSession(context.Background())
	require.True(t, env.svc.SessionExists(snap.SessionID))

	assert.Empty(t, env.svc.sweepSessions(time.Now().Add(10*time.Minute)))

	removed := env.svc.sweepSessions(time.Now().Add(31 * time.Minute))
	assert.Equal(t, []string{snap.SessionID}, removed)
	assert.Equal(t, []string{snap.SessionID}, env.evicted)
	assert.False(t, env.svc.SessionExists(snap.SessionID))
	assert.Equal(t, 0, env.svc.ActiveSessions())
}

func TestRunSessionSweeperStopsWithContext(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{})
	env.svc.opts.SweepInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.svc.RunSessionSweeper(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestTurnsArePersisted(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("Hola")})
	ctx := context.Background()

	snap := env.svc.OpenSession(ctx)
	rec, err := env.repo.GetSessionRecord(ctx, snap.SessionID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StepGreeting, rec.Step)

	_, err = env.svc.Chat(ctx, snap.SessionID, "")
	require.NoError(t, err)
	rec, err = env.repo.GetSessionRecord(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReason, rec.Step)
	assert.Contains(t, string(rec.Timeline), domain.LabelGreetingSent)
}

type failingStore struct{ repository.Store }

func (failingStore) UpsertSession(context.Context, *domain.SessionRecord) error {
	return errors.New("database is down")
}

func (failingStore) CreateLead(context.Context, *domain.Lead) error {
	return errors.New("database is down")
}

func TestPersistenceFailureDoesNotFailTurn(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("Hola")})
	env.svc.store = failingStore{}

	snap := env.svc.OpenSession(context.Background())
	resp, err := env.svc.Chat(context.Background(), snap.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, "Hola", resp.Reply)
}

func TestConcurrentTurnsAreSerialized(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("Ok.")})
	id := env.greeted(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Chat(context.Background(), id, "Buenas tardes")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, _ := env.sessions.Get(id)
	assert.Equal(t, 6, sess.AssistantCount())
	assert.Len(t, sess.RecentMessages(100), 11)
}

func TestMessageIsTruncated(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{Reply: helpers.Static("Ok.")})
	env.svc.opts.MaxMessageChars = 5
	id := env.greeted(t)

	_, err := env.svc.Chat(context.Background(), id, "abcdefghij")
	require.NoError(t, err)

	sess, _ := env.sessions.Get(id)
	msgs := sess.RecentMessages(2)
	require.Len(t, msgs, 2)
	assert.Equal(t, "abcde", msgs[0].Text)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hola", sanitize("  hola \n", 0))
	assert.Equal(t, "línea 1\nlínea 2", sanitize("línea 1\nlínea 2\x07", 0))
	assert.Equal(t, "", sanitize("\x00\x01 ", 10))
	assert.Equal(t, "ñañ", sanitize("ñañaña", 3))
}

type fakeMailer struct {
	err  error
	sent []mailer.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestCaptureLead(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{})
	m := &fakeMailer{}
	env.svc.mailer = m
	env.svc.opts.LeadNotifyTo = []string{"equipo@example.com"}

	resp, err := env.svc.CaptureLead(context.Background(), domain.LeadRequest{
		Name:    " Ana ",
		Email:   "ana@example.com",
		Company: "Clínica Sur",
	})
	require.NoError(t, err)
	assert.True(t, resp.Emailed)

	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"equipo@example.com"}, m.sent[0].To)
	assert.Equal(t, "Nuevo lead: Ana", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Body, "Empresa: Clínica Sur")

	lead, err := env.repo.GetLead(context.Background(), resp.LeadID)
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Ana", lead.Name)
}

func TestCaptureLeadMailFailure(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{})
	env.svc.mailer = &fakeMailer{err: errors.New("relay refused")}
	env.svc.opts.LeadNotifyTo = []string{"equipo@example.com"}

	resp, err := env.svc.CaptureLead(context.Background(), domain.LeadRequest{Name: "Ana", Email: "ana@example.com"})
	require.ErrorIs(t, err, ErrMailDelivery)
	require.NotNil(t, resp)
	assert.False(t, resp.Emailed)

	lead, err := env.repo.GetLead(context.Background(), resp.LeadID)
	require.NoError(t, err)
	assert.NotNil(t, lead)
}

func TestCaptureLeadWithoutRecipients(t *testing.T) {
	env := newTestEnv(t, &helpers.ScriptedClient{})
	m := &fakeMailer{}
	env.svc.mailer = m

	resp, err := env.svc.CaptureLead(context.Background(), domain.LeadRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.False(t, resp.Emailed)
	assert.Empty(t, m.sent)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		MaxAssistantTurns:    4,
		HistoryWindow:        2,
		MaxMessageChars:      50,
		PersistTimeout:       time.Second,
		SessionSweepInterval: time.Second,
		LeadNotifyTo:         "a@example.com, b@example.com,",
		Prompts:              config.DefaultPrompts(),
	}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 4, opts.MaxAssistantTurns)
	assert.Equal(t, 2, opts.HistoryWindow)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, opts.LeadNotifyTo)
	assert.Equal(t, domain.RequiredFields, opts.RequiredFields)
}
