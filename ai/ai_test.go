package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCleanLabel(t *testing.T) {
	cases := map[string]string{
		"dog":                   "Dog",
		"  Golden Retriever. ":  "Golden retriever",
		"coffee, mug, table":    "Coffee mug",
		"\"Teddy-bear\"!":       "Teddy-bear",
		"...":                   "",
		"árbol":                 "Árbol",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanLabel(in), "input %q", in)
	}
}

func TestDecodeImage(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	data, mime, err := DecodeImage("data:image/png;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, pngHeader, data)

	_, mime, err = DecodeImage(raw)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, _, err = DecodeImage("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi")))
	assert.ErrorIs(t, err, ErrBadImage)
	_, _, err = DecodeImage("%%%")
	assert.ErrorIs(t, err, ErrBadImage)
	_, _, err = DecodeImage("data:image/png," + raw)
	assert.ErrorIs(t, err, ErrBadImage)
}

func chatServer(t *testing.T, reply string, check func(req chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(req)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": reply}}},
		})
	}))
}

func TestChatClientLabel(t *testing.T) {
	srv := chatServer(t, "golden retriever.", func(req chatRequest) {
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		parts, ok := req.Messages[0].Content.([]interface{})
		require.True(t, ok)
		require.Len(t, parts, 2)
		image := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})["url"].(string)
		assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"))
	})
	defer srv.Close()

	client, err := NewChatClient(srv.URL+"/v1/", "sk-test", "", srv.Client())
	require.NoError(t, err)

	label, err := client.Label(context.Background(), pngHeader, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Golden retriever", label)
}

func TestChatClientTranslate(t *testing.T) {
	srv := chatServer(t, "\"Computadora\".", func(req chatRequest) {
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "Latin American Spanish")
		assert.Equal(t, "Computer", req.Messages[1].Content)
	})
	defer srv.Close()

	client, err := NewChatClient(srv.URL+"/v1", "sk-test", "gpt-4o-mini", srv.Client())
	require.NoError(t, err)

	out, err := client.Translate(context.Background(), "Computer")
	require.NoError(t, err)
	assert.Equal(t, "Computadora", out)
}

func TestChatClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	client, err := NewChatClient(srv.URL, "sk-test", "", srv.Client())
	require.NoError(t, err)
	_, err = client.Translate(context.Background(), "Dog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewChatClient(srv.URL, "", "", nil)
	assert.Error(t, err)
}

func TestMyMemoryAndLingva(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/get":
			assert.Equal(t, "en|es", r.URL.Query().Get("langpair"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"responseData": map[string]string{"translatedText": "Perro"},
			})
		case r.URL.Path == "/api/v1/en/es/Teddy bear":
			_ = json.NewEncoder(w).Encode(map[string]string{"translation": "Oso de peluche"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	out, err := MyMemory{Endpoint: srv.URL + "/get", Client: srv.Client()}.Translate(ctx, "Dog")
	require.NoError(t, err)
	assert.Equal(t, "Perro", out)

	out, err = Lingva{BaseURL: srv.URL + "/api/v1/", Client: srv.Client()}.Translate(ctx, "Teddy bear")
	require.NoError(t, err)
	assert.Equal(t, "Oso de peluche", out)

	_, err = Lingva{BaseURL: srv.URL + "/missing", Client: srv.Client()}.Translate(ctx, "Dog")
	assert.Error(t, err)
}

type fixedTranslator struct {
	out   string
	err   error
	calls int
}

func (f *fixedTranslator) Translate(ctx context.Context, text string) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestChainFallsBack(t *testing.T) {
	primary := &fixedTranslator{err: errors.New("quota")}
	mymemory := &fixedTranslator{out: "dog"}
	lingva := &fixedTranslator{out: "Perro"}

	chain := NewChain(nil).Add("chat", primary).Add("mymemory", mymemory).Add("lingva", lingva)
	out, err := chain.Translate(context.Background(), "Dog")
	require.NoError(t, err)
	assert.Equal(t, "Perro", out)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, mymemory.calls)
	assert.Equal(t, 1, lingva.calls)
}

func TestChainStopsAtFirstAnswer(t *testing.T) {
	primary := &fixedTranslator{out: "Gato"}
	backup := &fixedTranslator{out: "Felino"}

	out, err := NewChain(nil).Add("chat", primary).Add("mymemory", backup).Translate(context.Background(), "Cat")
	require.NoError(t, err)
	assert.Equal(t, "Gato", out)
	assert.Zero(t, backup.calls)
}

func TestChainKeepsEchoAsLastResort(t *testing.T) {
	echo := &fixedTranslator{out: "Chocolate"}
	broken := &fixedTranslator{err: errors.New("down")}

	out, err := NewChain(nil).Add("mymemory", echo).Add("lingva", broken).Translate(context.Background(), "Chocolate")
	require.NoError(t, err)
	assert.Equal(t, "Chocolate", out)

	_, err = NewChain(nil).Add("lingva", broken).Translate(context.Background(), "Chocolate")
	assert.Error(t, err)
	_, err = NewChain(nil).Translate(context.Background(), "Chocolate")
	assert.Error(t, err)
}

func TestTopLabel(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
		LabelAnnotations: []*visionpb.EntityAnnotation{
			{Description: "Furniture", Score: 0.81},
			{Description: "chair", Score: 0.97},
			{Description: "", Score: 0.99},
		},
	}}}
	label, err := topLabel(resp)
	require.NoError(t, err)
	assert.Equal(t, "Chair", label)

	_, err = topLabel(&visionpb.BatchAnnotateImagesResponse{})
	assert.ErrorIs(t, err, ErrNoLabel)
	_, err = topLabel(nil)
	assert.ErrorIs(t, err, ErrNoLabel)
}

func TestGCPLabelerClose(t *testing.T) {
	var none *GCPLabeler
	assert.NoError(t, none.Close())

	g, err := NewGCPLabeler(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint("127.0.0.1:1"),
	)
	require.NoError(t, err)
	assert.NoError(t, g.Close())
}

type fixedLabeler struct {
	label string
	err   error
}

func (f fixedLabeler) Label(ctx context.Context, image []byte, mimeType string) (string, error) {
	return f.label, f.err
}

func TestAnalyzer(t *testing.T) {
	a := Analyzer{Labeler: fixedLabeler{label: "red apple!"}, Translator: &fixedTranslator{out: "Manzana roja"}}
	out, err := a.Analyze(context.Background(), pngHeader, "image/png")
	require.NoError(t, err)
	assert.Equal(t, &Analysis{Label: "Red apple", Translation: "Manzana roja"}, out)

	a.Labeler = fixedLabeler{label: "?!"}
	_, err = a.Analyze(context.Background(), pngHeader, "image/png")
	assert.ErrorIs(t, err, ErrNoLabel)
}
