package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"voltguard/internal/classifier"
	"voltguard/internal/config"
	"voltguard/internal/diagnose"
	"voltguard/internal/manifest"
	"voltguard/internal/policy"
	"voltguard/internal/predict"
	"voltguard/internal/reconcile"
)

type fixedScorer struct{ prob float64 }

func (s fixedScorer) Score(_ context.Context, batch []reconcile.Vector) ([]float64, error) {
	probs := make([]float64, len(batch))
	for i := range probs {
		probs[i] = s.prob
	}
	return probs, nil
}

type failingScorer struct{}

func (failingScorer) Score(_ context.Context, _ []reconcile.Vector) ([]float64, error) {
	return nil, errors.New("model backend unavailable")
}

// fakeReader replays a fixed message sequence and records which offsets
// get committed. FetchMessage reports context.Canceled once drained, the
// same way a canceled *kafka.Reader does.
type fakeReader struct {
	msgs      []kafka.Message
	next      int
	committed []int64
}

func (f *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if f.next >= len(f.msgs) {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[f.next]
	f.next++
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeWriter struct {
	written []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func testPipeline(scorer classifier.Scorer) *predict.Pipeline {
	m := manifest.Default()
	engine := reconcile.NewEngine(m, manifest.DefaultAliases(), reconcile.DefaultConfig(), nil, nil)
	return predict.New(engine, scorer,
		diagnose.NewEngine(diagnose.DefaultConfig(), nil),
		policy.New(policy.DefaultConfig(), nil), nil, nil, 1)
}

func testConsumer(t *testing.T) *Consumer {
	t.Helper()
	// Handle does not touch the broker, so reader/writer stay nil.
	return &Consumer{pipe: testPipeline(fixedScorer{prob: 0.10}), cfg: config.Kafka{}, log: nil}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_SingleRecord(t *testing.T) {
	c := testConsumer(t)

	out, err := c.Handle(context.Background(), []byte("station-7"), []byte(`{"avg_peak_temp": 35.0}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	if string(out[0].Key) != "station-7" {
		t.Errorf("verdict key = %q, want the record key carried through", out[0].Key)
	}
	var v predict.Verdict
	if err := json.Unmarshal(out[0].Value, &v); err != nil {
		t.Fatal(err)
	}
	if v.Status != policy.StatusNormal {
		t.Errorf("status = %q, want Normal", v.Status)
	}
}

func TestHandle_ArrayKeepsOrder(t *testing.T) {
	c := testConsumer(t)

	out, err := c.Handle(context.Background(), nil, []byte(`[{"avg_peak_temp": 35.0}, {"avg_peak_temp": 105.0}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d messages, want 2", len(out))
	}
	var first, second predict.Verdict
	if err := json.Unmarshal(out[0].Value, &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out[1].Value, &second); err != nil {
		t.Fatal(err)
	}
	if first.RiskLevel != policy.RiskLow || second.RiskLevel != policy.RiskHigh {
		t.Errorf("risk order = %s/%s, want Low/High", first.RiskLevel, second.RiskLevel)
	}
}

func TestHandle_MalformedPayload(t *testing.T) {
	c := testConsumer(t)

	for _, payload := range []string{`"text"`, `17`, `[true]`, `{broken`} {
		_, err := c.Handle(context.Background(), nil, []byte(payload))
		if !errors.Is(err, errBadPayload) {
			t.Errorf("payload %q: err = %v, want errBadPayload", payload, err)
		}
	}
}

func TestRun_ScoringFailureStopsWithoutCommit(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 5, Value: []byte(`{"avg_peak_temp": 35.0}`)},
		{Offset: 6, Value: []byte(`{"avg_peak_temp": 36.0}`)},
	}}
	writer := &fakeWriter{}
	c := &Consumer{pipe: testPipeline(failingScorer{}), reader: reader, writer: writer, log: quietLogger()}

	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to return the scoring error")
	}
	if !strings.Contains(err.Error(), "offset 5") {
		t.Errorf("err = %v, want the failed offset named", err)
	}
	// Nothing may be committed past the failed message: a restart has to
	// refetch it from the last committed offset.
	if len(reader.committed) != 0 {
		t.Errorf("committed offsets = %v, want none", reader.committed)
	}
	if len(writer.written) != 0 {
		t.Errorf("wrote %d verdicts, want none", len(writer.written))
	}
}

func TestRun_MalformedSkippedAndCommitted(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte(`{broken`)},
		{Offset: 2, Value: []byte(`{"avg_peak_temp": 35.0}`)},
	}}
	writer := &fakeWriter{}
	c := &Consumer{pipe: testPipeline(fixedScorer{prob: 0.10}), reader: reader, writer: writer, log: quietLogger()}

	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(reader.committed) != 2 || reader.committed[0] != 1 || reader.committed[1] != 2 {
		t.Errorf("committed offsets = %v, want [1 2]", reader.committed)
	}
	if len(writer.written) != 1 {
		t.Fatalf("wrote %d verdicts, want 1 (malformed message skipped)", len(writer.written))
	}
	var v predict.Verdict
	if err := json.Unmarshal(writer.written[0].Value, &v); err != nil {
		t.Fatal(err)
	}
	if v.Status != policy.StatusNormal {
		t.Errorf("status = %q, want Normal", v.Status)
	}
}

func TestNewConsumer_RequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(nil, config.Kafka{}, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}
