package comments

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/api/apitest"
	"github.com/rift/client/internal/models"
)

func TestLoadIsAnonymous(t *testing.T) {
	fake := apitest.New().Reply(http.MethodGet, "/videos/v1/comments", models.CommentPage{
		Comments: []models.Comment{{ID: "c1", Text: "first"}},
	})
	m := NewModel(fake, "v1")

	require.NoError(t, m.Load(context.Background()))
	require.True(t, fake.Calls()[0].Anonymous)
	require.Len(t, m.Snapshot().Comments, 1)
}

func TestPostInsertsAtTop(t *testing.T) {
	fake := apitest.New().
		Reply(http.MethodGet, "/videos/v1/comments", models.CommentPage{Comments: []models.Comment{{ID: "c1"}}}).
		Handle(http.MethodPost, "/videos/v1/comments", func(_ context.Context, req api.Request) (any, error) {
			body := req.Body.(models.CreateCommentRequest)
			return models.Comment{ID: "c2", VideoID: "v1", Text: body.Text}, nil
		})
	m := NewModel(fake, "v1")
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	created, err := m.Post(ctx, "  nice clip ")
	require.NoError(t, err)
	require.Equal(t, "nice clip", created.Text)

	snap := m.Snapshot()
	require.Equal(t, []string{"c2", "c1"}, []string{snap.Comments[0].ID, snap.Comments[1].ID})
	require.False(t, fake.Calls()[1].Anonymous)
}

func TestPostFailureKeepsThread(t *testing.T) {
	fake := apitest.New().Fail(http.MethodPost, "/videos/v1/comments", &api.Error{Kind: api.KindUnauthorized})
	m := NewModel(fake, "v1")

	_, err := m.Post(context.Background(), "hello")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	require.Empty(t, m.Snapshot().Comments)
	require.Equal(t, "unauthorized: please log in again", m.Snapshot().ErrorMessage)
}

func TestPostBlankIsIgnored(t *testing.T) {
	fake := apitest.New()
	_, err := NewModel(fake, "v1").Post(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, fake.Calls())
}
