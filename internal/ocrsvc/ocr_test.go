package ocrsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecognizeOnlineParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"text":"Log in","bbox":[[100,450],[900,450],[900,520],[100,520]],"confidence":0.92}]`))
	}))
	defer srv.Close()

	a := New("")
	texts, err := a.Recognize(context.Background(), []byte("fake-image"), ModeOnline, srv.URL)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	require.Equal(t, "Log in", texts[0].Text)
	require.InDelta(t, 0.92, texts[0].Confidence, 1e-6)
	cx, cy := texts[0].Center()
	require.InDelta(t, 500, cx, 1e-6)
	require.InDelta(t, 485, cy, 1e-6)
}

func TestRecognizeOnlineWithoutEndpointErrors(t *testing.T) {
	a := New("")
	_, err := a.Recognize(context.Background(), []byte("x"), ModeOnline, "")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestRecognizeOfflineWithoutBinaryErrors(t *testing.T) {
	a := New("")
	_, err := a.Recognize(context.Background(), []byte("x"), ModeOffline, "eng")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestRecognizeUnknownModeErrors(t *testing.T) {
	a := New("")
	_, err := a.Recognize(context.Background(), []byte("x"), Mode("bogus"), "")
	require.Error(t, err)
}
