package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAttachment(t *testing.T, env *testEnv, id, hash string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, env.repos.Attachments.Create(context.Background(), &models.Attachment{
		ID: id, Hash: hash, MimeType: "image/png", DateCreated: now, DateModified: now,
	}))
}

func edgeTargets(t *testing.T, env *testEnv, noteID string, toType models.ItemType) []string {
	t.Helper()
	edges, err := env.repos.Relations.From(context.Background(), models.ItemRef{ID: noteID, Type: models.ItemNote}, toType)
	require.NoError(t, err)
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.ToID)
	}
	return out
}

func TestReconcile_AttachmentsDiff(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()
	noteID, _ := env.newNote(t, "n")
	seedAttachment(t, env, "a1", "h1")
	seedAttachment(t, env, "a2", "h2")
	seedAttachment(t, env, "a3", "h3")

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, []string{"h1", "h2", "unknown"}, nil))
	assert.Equal(t, []string{"a1", "a2"}, edgeTargets(t, env, noteID, models.ItemAttachment))

	before, err := env.repos.Relations.From(ctx, models.ItemRef{ID: noteID, Type: models.ItemNote}, models.ItemAttachment)
	require.NoError(t, err)

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, []string{"h2", "h3"}, nil))
	assert.Equal(t, []string{"a2", "a3"}, edgeTargets(t, env, noteID, models.ItemAttachment))

	after, err := env.repos.Relations.From(ctx, models.ItemRef{ID: noteID, Type: models.ItemNote}, models.ItemAttachment)
	require.NoError(t, err)
	// the surviving edge is untouched
	assert.Equal(t, before[1], after[0])
}

func TestReconcile_LinksSkipMissingNotes(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()
	noteID, _ := env.newNote(t, "source")
	targetID, _ := env.newNote(t, "target")

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, nil, []string{targetID, "ghost", noteID}))
	assert.Equal(t, []string{targetID}, edgeTargets(t, env, noteID, models.ItemNote))

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, nil, nil))
	assert.Empty(t, edgeTargets(t, env, noteID, models.ItemNote))
}

func TestReconcile_DropsLinkToDeletedNote(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()
	noteID, _ := env.newNote(t, "source")
	targetID, _ := env.newNote(t, "target")

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, nil, []string{targetID}))
	require.Equal(t, []string{targetID}, edgeTargets(t, env, noteID, models.ItemNote))

	require.NoError(t, env.repos.Notes.SoftDelete(ctx, targetID, time.Now()))

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, nil, []string{targetID}))
	assert.Empty(t, edgeTargets(t, env, noteID, models.ItemNote))
}

func TestReconcile_LeavesOtherRelationTypes(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()
	noteID, _ := env.newNote(t, "n")
	note := models.ItemRef{ID: noteID, Type: models.ItemNote}
	require.NoError(t, env.repos.Relations.Add(ctx, note, models.ItemRef{ID: "t1", Type: models.ItemTag}))

	require.NoError(t, env.reconciler.Reconcile(ctx, noteID, nil, nil))
	assert.Equal(t, []string{"t1"}, edgeTargets(t, env, noteID, models.ItemTag))
}

func TestAdd_InternalLinksCreateRelations(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	noteID, _ := env.newNote(t, "source")
	targetID, _ := env.newNote(t, "target")

	env.save(t, noteID, `<p><a href="nk://note/`+targetID+`">see</a></p>`)
	assert.Equal(t, []string{targetID}, edgeTargets(t, env, noteID, models.ItemNote))

	env.save(t, noteID, `<p>no more links</p>`)
	assert.Empty(t, edgeTargets(t, env, noteID, models.ItemNote))
}
