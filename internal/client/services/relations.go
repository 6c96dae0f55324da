package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/relations"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// RelationReconciler keeps the note→attachment and note→note edges derived
// from a note body in step with the body. It diffs the existing edges
// against the parsed references and touches only what changed.
type RelationReconciler struct {
	relations   relations.Repository
	attachments attachments.Repository
	notes       NoteCollection
	log         logging.Logger
}

func NewRelationReconciler(rel relations.Repository, att attachments.Repository, notes NoteCollection, log logging.Logger) *RelationReconciler {
	return &RelationReconciler{relations: rel, attachments: att, notes: notes, log: log}
}

// Reconcile aligns the derived edges of noteID with hashes and links.
func (r *RelationReconciler) Reconcile(ctx context.Context, noteID string, hashes, links []string) error {
	note := models.ItemRef{ID: noteID, Type: models.ItemNote}
	if err := r.reconcileAttachments(ctx, note, hashes); err != nil {
		return fmt.Errorf("reconcile attachments of %s: %w", noteID, err)
	}
	if err := r.reconcileLinks(ctx, note, links); err != nil {
		return fmt.Errorf("reconcile links of %s: %w", noteID, err)
	}
	return nil
}

func (r *RelationReconciler) reconcileAttachments(ctx context.Context, note models.ItemRef, hashes []string) error {
	wanted := toSet(hashes)

	edges, err := r.relations.From(ctx, note, models.ItemAttachment)
	if err != nil {
		return err
	}

	linked := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		a, err := r.attachments.GetByID(ctx, e.ToID)
		if err != nil {
			return err
		}
		if a != nil {
			if _, ok := wanted[a.Hash]; ok {
				linked[a.Hash] = struct{}{}
				continue
			}
		}
		if err := r.relations.Unlink(ctx, note, e.To()); err != nil {
			return err
		}
	}

	for _, h := range hashes {
		if _, ok := linked[h]; ok {
			continue
		}
		a, err := r.attachments.GetByHash(ctx, h)
		if err != nil {
			return err
		}
		if a == nil {
			r.log.Debug(ctx, "skipping unknown attachment", "note", note.ID, "hash", h)
			continue
		}
		if err := r.relations.Add(ctx, note, models.ItemRef{ID: a.ID, Type: models.ItemAttachment}); err != nil {
			return err
		}
		linked[h] = struct{}{}
	}
	return nil
}

func (r *RelationReconciler) reconcileLinks(ctx context.Context, note models.ItemRef, links []string) error {
	wanted := toSet(links)

	edges, err := r.relations.From(ctx, note, models.ItemNote)
	if err != nil {
		return err
	}

	linked := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if _, ok := wanted[e.ToID]; ok {
			exists, err := r.notes.Exists(ctx, e.ToID)
			if err != nil {
				return err
			}
			if exists {
				linked[e.ToID] = struct{}{}
				continue
			}
		}
		if err := r.relations.Unlink(ctx, note, e.To()); err != nil {
			return err
		}
	}

	for _, id := range links {
		if _, ok := linked[id]; ok || id == note.ID {
			continue
		}
		exists, err := r.notes.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := r.relations.Add(ctx, note, models.ItemRef{ID: id, Type: models.ItemNote}); err != nil {
			return err
		}
		linked[id] = struct{}{}
	}
	return nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
