package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/paycard/internal/logging"
)

type capturedUpload struct {
	path    string
	chatID  string
	caption string
	name    string
	body    []byte
}

func newGateway(t *testing.T, status int, reply string) (*httptest.Server, *capturedUpload) {
	t.Helper()
	got := &capturedUpload{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		assert.NoError(t, r.ParseMultipartForm(1<<20), "parse multipart")
		got.chatID = r.FormValue("chatId")
		got.caption = r.FormValue("caption")
		if file, header, err := r.FormFile("file"); err == nil {
			got.name = header.Filename
			got.body, _ = io.ReadAll(file)
			file.Close()
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payment_paid_card_0a1b2c3d.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	return path
}

func newNotifier(baseURL string) *WhatsAppNotifier {
	return NewWhatsAppNotifier(WhatsAppConfig{BaseURL: baseURL, CountryCode: "92"}, nil, logging.Discard())
}

func TestChatAddress(t *testing.T) {
	n := newNotifier("http://example.invalid")
	assert.Equal(t, "923001234567@c.us", n.ChatAddress("3001234567"))
	assert.Equal(t, "120363@g.us", n.ChatAddress("120363@g.us"))
}

func TestSendUploadsFileWithPerRequestCredentials(t *testing.T) {
	srv, got := newGateway(t, http.StatusOK, `{"idMessage":"abc"}`)
	n := newNotifier(srv.URL)

	res, err := n.Send(context.Background(), Upload{
		Path:      writeArtifact(t),
		Recipient: Recipient{ChatID: "3001234567", InstanceID: "inst1", APIToken: "tok"},
	})
	require.NoError(t, err)
	require.False(t, res.IsFault())
	assert.Equal(t, map[string]any{"idMessage": "abc"}, res.Ack)

	assert.Equal(t, "/waInstanceinst1/sendFileByUpload/tok", got.path)
	assert.Equal(t, "923001234567@c.us", got.chatID)
	assert.Equal(t, "", got.caption)
	assert.Equal(t, "payment_paid_card_0a1b2c3d.png", got.name)
	assert.Equal(t, []byte("png-bytes"), got.body)
}

func TestSendNonJSONReturnsFault(t *testing.T) {
	srv, _ := newGateway(t, http.StatusBadGateway, "<html>upstream down</html>")
	n := newNotifier(srv.URL)

	res, err := n.Send(context.Background(), Upload{
		Path:      writeArtifact(t),
		Recipient: Recipient{ChatID: "3001234567", InstanceID: "inst1", APIToken: "tok"},
	})
	require.NoError(t, err)
	require.True(t, res.IsFault())
	assert.Equal(t, FaultNonJSON, res.Fault.Error)
	assert.Equal(t, http.StatusBadGateway, res.Fault.StatusCode)
	assert.Equal(t, "<html>upstream down</html>", res.Fault.Text)

	encoded, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Non-JSON response","status_code":502,"text":"<html>upstream down</html>"}`, string(encoded))
}

func TestSendNonObjectJSONIsTaggedByShape(t *testing.T) {
	for _, reply := range []string{`["queued"]`, `"ok"`, `42`, `null`} {
		srv, _ := newGateway(t, http.StatusOK, reply)
		res, err := newNotifier(srv.URL).Send(context.Background(), Upload{
			Path:      writeArtifact(t),
			Recipient: Recipient{ChatID: "3001234567", InstanceID: "inst1", APIToken: "tok"},
		})
		require.NoError(t, err, reply)
		require.True(t, res.IsFault(), "reply %s must not become an ack", reply)
		assert.Equal(t, FaultNonObject, res.Fault.Error, reply)
		assert.Equal(t, http.StatusOK, res.Fault.StatusCode)
		assert.Equal(t, reply, res.Fault.Text)
	}
}

func TestSendJSONErrorStatusIsError(t *testing.T) {
	srv, _ := newGateway(t, http.StatusUnauthorized, `{"message":"bad token"}`)
	n := newNotifier(srv.URL)

	_, err := n.Send(context.Background(), Upload{
		Path:      writeArtifact(t),
		Recipient: Recipient{ChatID: "3001234567", InstanceID: "inst1", APIToken: "bad"},
	})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "bad token", statusErr.Body["message"])
}

func TestSendNetworkFailureIsError(t *testing.T) {
	srv, _ := newGateway(t, http.StatusOK, `{}`)
	srv.Close()
	n := newNotifier(srv.URL)

	_, err := n.Send(context.Background(), Upload{
		Path:      writeArtifact(t),
		Recipient: Recipient{ChatID: "1", InstanceID: "i", APIToken: "t"},
	})
	require.Error(t, err)
}

func TestLoggerNotifierAcknowledges(t *testing.T) {
	n := NewLoggerNotifier(logging.Discard())
	res, err := n.Send(context.Background(), Upload{Path: "generated/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "logged", res.Ack["delivery"])
	assert.NotEmpty(t, res.Ack["idMessage"])
}
