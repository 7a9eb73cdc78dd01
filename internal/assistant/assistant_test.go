package assistant

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []string{
	"baby_monitor", "lights", "motion_sensor", "security_camera",
	"smoke_detector", "socket", "thermostat", "TV", "watch",
}

func newTestAssistant() *Assistant {
	a := New(func() Facts {
		return Facts{Samples: 10000, Features: 297, Models: 3, Categories: testCategories}
	})
	a.SetRand(rand.New(rand.NewSource(1)))
	return a
}

func TestReply_EmptyMessage(t *testing.T) {
	a := newTestAssistant()
	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := a.Reply("", msg)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
}

func TestReply_Routing(t *testing.T) {
	a := newTestAssistant()

	tests := []struct {
		name    string
		message string
		oneOf   []string
	}{
		{"greeting", "Hello there", greetings},
		{"greeting phrase", "good MORNING!", greetings},
		{"default", "tell me a joke", defaultAnswers},
		{"security", "Is there a threat?", securityAnswers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := a.Reply("", tt.message)
			require.NoError(t, err)
			assert.Contains(t, tt.oneOf, reply)
		})
	}
}

func TestReply_DeviceLookup(t *testing.T) {
	a := newTestAssistant()

	tests := map[string]string{
		"what about a baby monitor?":     deviceInfo["baby_monitor"],
		"describe security_camera":       deviceInfo["security_camera"],
		"how do I spot a smart TV":       deviceInfo["tv"],
		"my smoke detector looks quiet": deviceInfo["smoke_detector"],
	}
	for msg, want := range tests {
		reply, err := a.Reply("", msg)
		require.NoError(t, err)
		assert.Equal(t, want, reply, msg)
	}
}

func TestReply_UnknownCategoryHasGenericAnswer(t *testing.T) {
	a := New(func() Facts { return Facts{Categories: []string{"doorbell"}} })

	reply, err := a.Reply("", "what is a doorbell")
	require.NoError(t, err)
	assert.Equal(t, "I can help you identify doorbell devices based on their network traffic patterns.", reply)
}

func TestReply_WholeWordMatching(t *testing.T) {
	a := newTestAssistant()

	// "this" must not count as a greeting, "html" must not count as "ml".
	reply, err := a.Reply("", "this html page")
	require.NoError(t, err)
	assert.Contains(t, defaultAnswers, reply)
}

func TestReply_LiveFacts(t *testing.T) {
	models := 3
	a := New(func() Facts {
		return Facts{Samples: 42, Features: 7, Models: models, Categories: []string{"a", "b"}}
	})

	reply, err := a.Reply("", "how big is the dataset")
	require.NoError(t, err)
	assert.Equal(t, "The reference dataset has 42 samples across 2 device categories. It includes 7 features extracted from network traffic including packet characteristics, HTTP patterns, SSL certificates, and timing information.", reply)

	models = 5
	reply, err = a.Reply("", "what accuracy do you get")
	require.NoError(t, err)
	assert.Contains(t, reply, "It combines 5 classifiers")
	assert.Contains(t, reply, "analyzing 7 network")
}

func TestReply_CapabilitiesListCategories(t *testing.T) {
	a := New(func() Facts { return Facts{Categories: []string{"lights", "TV", "watch"}} })

	for i := 0; i < 20; i++ {
		reply, err := a.Reply("", "what can you do")
		require.NoError(t, err)
		assert.NotContains(t, reply, "{")
		if strings.HasPrefix(reply, "I can help you identify IoT devices") {
			assert.Contains(t, reply, "3 device categories: lights, TV, and watch.")
		}
	}
}

func TestSessions(t *testing.T) {
	a := newTestAssistant()

	s := a.StartSession()
	assert.True(t, strings.HasPrefix(s.ID, SessionPrefix))
	assert.NotEqual(t, s.ID, a.StartSession().ID)

	_, err := a.Reply(s.ID, "hi")
	require.NoError(t, err)
	_, err = a.Reply(s.ID, "help")
	require.NoError(t, err)

	got, ok := a.session(s.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.Messages)

	_, ok = a.session("local_session_missing")
	assert.False(t, ok)

	_, err = a.Reply("local_session_missing", "hi")
	assert.NoError(t, err)
}

func TestReply_Concurrent(t *testing.T) {
	a := newTestAssistant()
	s := a.StartSession()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Reply(s.ID, "tell me about features")
		}()
	}
	wg.Wait()

	got, _ := a.session(s.ID)
	assert.Equal(t, 20, got.Messages)
}

func TestJoinCategories(t *testing.T) {
	assert.Equal(t, "none loaded", joinCategories(nil))
	assert.Equal(t, "a", joinCategories([]string{"a"}))
	assert.Equal(t, "a, and b", joinCategories([]string{"a", "b"}))
}
