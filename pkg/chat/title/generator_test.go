package title

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"t3chat-be/pkg/llm"
)

type stubProvider struct {
	reply string
	err   error

	gotModel string
}

func (p *stubProvider) Chat(_ context.Context, _ []llm.Message, options ...llm.Option) (string, error) {
	opts := &llm.Options{}
	for _, o := range options {
		o(opts)
	}
	p.gotModel = opts.Model
	return p.reply, p.err
}

func (p *stubProvider) ChatStream(ctx context.Context, history []llm.Message, onChunk llm.ChunkFunc, options ...llm.Option) (string, error) {
	return p.Chat(ctx, history, options...)
}

func TestDeriveTrimsDecoration(t *testing.T) {
	p := &stubProvider{reply: "  \"Weekend Plans\" \n"}
	g := NewGenerator(p, "some/title-model")

	got, err := g.Derive(context.Background(), "what should I do this weekend?")
	require.NoError(t, err)
	assert.Equal(t, "Weekend Plans", got)
	assert.Equal(t, "some/title-model", p.gotModel)
}

func TestDeriveEmptyMessage(t *testing.T) {
	g := NewGenerator(&stubProvider{reply: "x"}, "m")
	_, err := g.Derive(context.Background(), "   ")
	assert.Error(t, err)
}

func TestDerivePropagatesProviderFailure(t *testing.T) {
	g := NewGenerator(&stubProvider{err: errors.New("rate limited")}, "m")
	_, err := g.Derive(context.Background(), "hello")
	assert.Error(t, err)
}

func TestDeriveEmptyReply(t *testing.T) {
	g := NewGenerator(&stubProvider{reply: "\"\""}, "m")
	_, err := g.Derive(context.Background(), "hello")
	assert.Error(t, err)
}
