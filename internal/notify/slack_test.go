package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spirareport/internal/reporter"
)

type mockSlackPoster struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

func (m *mockSlackPoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return channelID, "1700000000.000100", nil
}

func TestSlackNotifier_NotifySummary(t *testing.T) {
	var gotChannel, gotText string
	n := &SlackNotifier{
		Channel: "#qa",
		Client: &mockSlackPoster{
			postMessageContextFunc: func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
				gotChannel = channelID
				_, values, err := slack.UnsafeApplyMsgOptions("token", channelID, "https://slack.com/api/", options...)
				require.NoError(t, err)
				gotText = values.Get("text")
				return channelID, "123.456", nil
			},
		},
	}

	summary := reporter.Summary{Submitted: 2, Recorded: 2, Passed: 2, TestRunIDs: []int{11, 12}}
	ts, err := n.NotifySummary(context.Background(), 7, summary, nil)
	require.NoError(t, err)
	assert.Equal(t, "123.456", ts)
	assert.Equal(t, "#qa", gotChannel)
	assert.Equal(t, ":white_check_mark: *Spira project 7*: recorded 2/2 test runs (2 passed, 0 failed, 0 unknown)\nTest runs: TR11, TR12", gotText)
}

func TestSlackNotifier_NotifySummary_PostError(t *testing.T) {
	n := &SlackNotifier{
		Channel: "#qa",
		Client: &mockSlackPoster{
			postMessageContextFunc: func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
				return "", "", errors.New("channel_not_found")
			},
		},
	}

	_, err := n.NotifySummary(context.Background(), 7, reporter.Summary{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlackNotifier_NotifySummary_NotConfigured(t *testing.T) {
	_, err := (&SlackNotifier{Channel: "#qa"}).NotifySummary(context.Background(), 1, reporter.Summary{}, nil)
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = (&SlackNotifier{Client: &mockSlackPoster{}}).NotifySummary(context.Background(), 1, reporter.Summary{}, nil)
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestNewSlackNotifier(t *testing.T) {
	_, err := NewSlackNotifier("", "#qa")
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = NewSlackNotifier("xoxb-test", "")
	assert.ErrorIs(t, err, ErrNoChannel)

	n, err := NewSlackNotifier("xoxb-test", "#qa")
	require.NoError(t, err)
	assert.Equal(t, "#qa", n.Channel)
	assert.IsType(t, &slack.Client{}, n.Client)
}

func TestSlackNotifier_WebAPI(t *testing.T) {
	var gotText, gotChannel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotText = r.PostForm.Get("text")
		gotChannel = r.PostForm.Get("channel")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000200"}`))
	}))
	defer server.Close()

	n, err := NewSlackNotifier("xoxb-test", "C123", slack.OptionAPIURL(server.URL+"/"))
	require.NoError(t, err)

	ts, err := n.NotifySummary(context.Background(), 3, reporter.Summary{Submitted: 1, Recorded: 1, Failed: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000200", ts)
	assert.Equal(t, "C123", gotChannel)
	assert.Contains(t, gotText, ":x: *Spira project 3*")
}

func TestSummaryMessage_Rejected(t *testing.T) {
	flushErr := errors.Join(errors.New("failed to record test run \"a\""), errors.New("failed to record test run \"b\""))
	msg := SummaryMessage(5, reporter.Summary{Submitted: 3, Recorded: 1, Rejected: 2, Passed: 3}, flushErr)

	assert.Contains(t, msg, ":x:")
	assert.Contains(t, msg, "recorded 1/3 test runs")
	assert.Contains(t, msg, "\n2 test run(s) were not recorded")
	assert.Contains(t, msg, "\n> failed to record test run \"a\"")
	assert.NotContains(t, msg, "\"b\"")
}
