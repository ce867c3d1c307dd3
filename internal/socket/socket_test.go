package socket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadnir/audionet/internal/audio"
	"github.com/tadnir/audionet/internal/config"
)

type fakeBackend struct{}

func (fakeBackend) SetRecordingCallback(audio.RecordingCallback)    {}
func (fakeBackend) Start() error                                   { return nil }
func (fakeBackend) Stop() error                                    { return nil }
func (fakeBackend) Close() error                                   { return nil }
func (fakeBackend) PlaySounds(sounds []audio.SoundDescriptor) error { return nil }

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer("transport")
	require.NoError(t, err)
	assert.Equal(t, LayerTransport, l)

	_, err = ParseLayer("bogus")
	assert.Error(t, err)
}

func TestLayerString(t *testing.T) {
	assert.Equal(t, "physical", LayerPhysical.String())
	assert.Equal(t, "link", LayerLink.String())
	assert.Equal(t, "transport", LayerTransport.String())
}

func TestNew_BuildsRequestedLayer(t *testing.T) {
	cfg := config.Default()
	cfg.RecvTimeout = 50 * time.Millisecond

	for _, layer := range []Layer{LayerPhysical, LayerLink, LayerTransport} {
		s, err := New(cfg, fakeBackend{}, layer)
		require.NoError(t, err)
		assert.Equal(t, layer, s.layer)
		assert.NotNil(t, s.endpoint)
	}
}

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Publish(event Event) {
	r.events = append(r.events, event)
}

func TestSend_PublishesEventToSink(t *testing.T) {
	cfg := config.Default()
	cfg.RecvTimeout = 50 * time.Millisecond

	s, err := New(cfg, fakeBackend{}, LayerPhysical)
	require.NoError(t, err)

	sink := &recordingSink{}
	s.SetSink(sink)

	err = s.Send([]byte("A"))
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "send", sink.events[0].Op)
	assert.Equal(t, LayerPhysical, sink.events[0].Layer)
}
