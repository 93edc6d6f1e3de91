package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/metrics"
	"github.com/teslashibe/go-moodlight/pkg/smoother"
	"github.com/teslashibe/go-moodlight/pkg/transport"
)

func TestPublish(t *testing.T) {
	mock := transport.NewMock()
	m := metrics.New(prometheus.NewRegistry())
	p := New(mock, transport.TopicEmotion, m, nil)

	require.NoError(t, p.Publish(emotions.Happy))

	got := mock.Published(transport.TopicEmotion)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"source":"ai","type":"emotion","emotion":"Happy"}`, string(got[0]))
	assert.EqualValues(t, 1, p.Stats().Sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmotionsEmitted.WithLabelValues("Happy")))
}

func TestPublish_RejectsUnknown(t *testing.T) {
	mock := transport.NewMock()
	p := New(mock, transport.TopicEmotion, nil, nil)

	assert.ErrorIs(t, p.Publish(emotions.Unknown), emotions.ErrUnknownLabel)
	assert.Empty(t, mock.Published(transport.TopicEmotion))
}

func TestPublish_TransportError(t *testing.T) {
	mock := transport.NewMock()
	mock.SetPublishError(errors.New("offline"))
	p := New(mock, transport.TopicEmotion, nil, nil)

	assert.Error(t, p.Publish(emotions.Sad))
	assert.EqualValues(t, 1, p.Stats().Failed)
}

func TestParseRaw(t *testing.T) {
	tests := []struct {
		in     string
		want   emotions.Label
		wantOK bool
	}{
		{"Happy", emotions.Happy, true},
		{"  sad \n", emotions.Sad, true},
		{`{"emotion":"Fear"}`, emotions.Fear, true},
		{"Joy", emotions.Label("Joy"), true},
		{"", "", false},
		{`{"emotion":""}`, "", false},
		{`{broken`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRaw([]byte(tt.in))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadLabels(t *testing.T) {
	in := strings.NewReader("Happy\n\n  Angry  \nJoy\n")
	out := make(chan emotions.Label, 10)

	require.NoError(t, ReadLabels(context.Background(), in, out))

	var got []emotions.Label
	for l := range out {
		got = append(got, l)
	}
	assert.Equal(t, []emotions.Label{emotions.Happy, emotions.Angry, "Joy"}, got)
}

func TestReadLabels_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan emotions.Label)
	err := ReadLabels(ctx, strings.NewReader("Happy\n"), out)
	assert.ErrorIs(t, err, context.Canceled)

	_, open := <-out
	assert.False(t, open)
}

func TestFromMessages(t *testing.T) {
	mock := transport.NewMock()
	msgs, err := mock.Subscribe(transport.TopicRaw)
	require.NoError(t, err)

	out := make(chan emotions.Label, 10)
	go FromMessages(context.Background(), msgs, mock.Done(), out)

	mock.Inject(transport.TopicRaw, []byte("Surprised"))
	mock.Inject(transport.TopicRaw, []byte(""))
	mock.Inject(transport.TopicRaw, []byte(`{"emotion":"Neutral"}`))

	assert.Equal(t, emotions.Surprised, <-out)
	assert.Equal(t, emotions.Neutral, <-out)

	mock.Close()
	select {
	case _, open := <-out:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("output not closed")
	}
}

func TestRun_SmoothsAndPublishes(t *testing.T) {
	mock := transport.NewMock()
	p := New(mock, transport.TopicEmotion, nil, nil)

	s, err := smoother.New(smoother.Config{WindowSize: 30, Interval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	samples := make(chan emotions.Label, 30)
	for i := 0; i < 30; i++ {
		samples <- emotions.Happy
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, s, samples)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(mock.Published(transport.TopicEmotion)) >= 1
	}, time.Second, 5*time.Millisecond)

	// Same label on later ticks is suppressed.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	got := mock.Published(transport.TopicEmotion)
	require.Len(t, got, 1)
	assert.Contains(t, string(got[0]), `"emotion":"Happy"`)
}
