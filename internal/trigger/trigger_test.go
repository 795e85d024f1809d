package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	apperrors "github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
)

func testEvent() Event {
	a := &anomaly.UsageAnomaly{
		ID:               "anomaly-1",
		CustomerID:       "acme",
		MetricType:       usage.MetricDAU,
		AnomalyType:      anomaly.TypeDrop,
		Severity:         anomaly.SeverityCritical,
		BaselineValue:    100,
		ActualValue:      25,
		DeviationPercent: -75,
		PossibleCause:    "Significant usage decline",
	}
	c := &customer.Customer{ID: "acme", Name: "Acme Corp", Status: customer.StatusActive}
	return NewEvent(a, c, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
}

func TestNewEvent_Shape(t *testing.T) {
	raw, err := json.Marshal(testEvent())
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.NotEmpty(t, got["id"])
	assert.Equal(t, "usage_metric_updated", got["type"])
	assert.Equal(t, "acme", got["customerId"])
	assert.Equal(t, "Acme Corp", got["customerName"])
	assert.Equal(t, "anomaly_detection", got["source"])
	assert.Equal(t, "2026-10-19T09:00:00Z", got["timestamp"])

	data := got["data"].(map[string]interface{})
	assert.Equal(t, "anomaly-1", data["anomalyId"])
	assert.Equal(t, "drop", data["anomalyType"])
	assert.Equal(t, "dau", data["metricType"])
	assert.Equal(t, "critical", data["severity"])
	assert.Equal(t, 100.0, data["baselineValue"])
	assert.Equal(t, 25.0, data["actualValue"])
	assert.Equal(t, -75.0, data["deviationPercent"])
	assert.Equal(t, "Significant usage decline", data["possibleCause"])
	assert.Contains(t, data, "affectedFeature")
	assert.Nil(t, data["affectedFeature"])
}

func TestNewEvent_EmptyFieldsSerializeAsNull(t *testing.T) {
	a := &anomaly.UsageAnomaly{
		ID:          "anomaly-2",
		MetricType:  usage.MetricAPICalls,
		AnomalyType: anomaly.TypeSpike,
		Severity:    anomaly.SeverityInfo,
	}
	c := &customer.Customer{ID: "acme", Name: "Acme Corp"}

	raw, err := json.Marshal(NewEvent(a, c, time.Now()).Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"possibleCause":null`)
	assert.Contains(t, string(raw), `"affectedFeature":null`)

	a.AffectedFeature = "exports"
	data := NewEvent(a, c, time.Now()).Data
	require.NotNil(t, data.AffectedFeature)
	assert.Equal(t, "exports", *data.AffectedFeature)
	assert.Nil(t, data.PossibleCause)
}

func TestWebhookPublisher_SignsPayload(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	p := NewWebhookPublisher(server.URL, "s3cret", 0)
	require.NoError(t, p.Publish(context.Background(), testEvent()))

	assert.Equal(t, Sign(gotBody, "s3cret"), gotSignature)

	var event Event
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, "anomaly-1", event.Data.AnomalyID)
}

func TestWebhookPublisher_NoSecretNoSignature(t *testing.T) {
	var hasSignature bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSignature = r.Header[SignatureHeader]
	}))
	defer server.Close()

	require.NoError(t, NewWebhookPublisher(server.URL, "", time.Second).Publish(context.Background(), testEvent()))
	assert.False(t, hasSignature)
}

func TestWebhookPublisher_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewWebhookPublisher(server.URL, "", time.Second).Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTriggerDelivery))
}

func TestWebhookPublisher_CircuitOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewWebhookPublisher(server.URL, "", time.Second)
	for i := 0; i < 8; i++ {
		assert.Error(t, p.Publish(context.Background(), testEvent()))
	}

	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "acme", string(w.msgs[0].Key))

	var event Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, EventTypeUsageMetricUpdated, event.Type)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

type countingPublisher struct {
	count int
	err   error
}

func (c *countingPublisher) Publish(ctx context.Context, event Event) error {
	c.count++
	return c.err
}

func TestMulti_DeliversToAll(t *testing.T) {
	failing := &countingPublisher{err: errors.New("unreachable")}
	ok := &countingPublisher{}
	log := logger.New(logger.Config{Level: "error", Format: "json"})

	err := Multi{failing, ok, NewLogPublisher(log)}.Publish(context.Background(), testEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Equal(t, 1, failing.count)
	assert.Equal(t, 1, ok.count)
}
