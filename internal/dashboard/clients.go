package dashboard

import (
	"context"

	"projectdash/internal/cache"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
)

type clientUpdate struct {
	ID    string
	Patch models.ClientPatch
}

// CreateClient adds a client. The new client is shown at the top of the list
// under a temporary id until the server answers.
func (s *Session) CreateClient(ctx context.Context, in models.ClientInput) (models.Client, error) {
	in.Normalize()
	ref := mutation.NewPending()

	m := mutation.Mutation[models.ClientInput, models.Client]{
		Name: "create client",
		Keys: func(models.ClientInput) []string { return []string{clientsKey} },
		Apply: func(tx *cache.Txn, in models.ClientInput) {
			now := s.now()
			editList(tx, clientsKey, prepend(models.Client{
				ID:        ref.ID(),
				Name:      in.Name,
				Email:     in.Email,
				Phone:     in.Phone,
				Status:    in.Status,
				UserID:    s.userID,
				CreatedAt: now,
				UpdatedAt: now,
			}))
		},
		Remote: s.api.CreateClient,
		Reconcile: func(tx *cache.Txn, _ models.ClientInput, created models.Client) {
			tempID, ok := commit(&ref, created.ID)
			if !ok {
				return
			}
			editList(tx, clientsKey, replaceWhere(clientID(tempID), func(models.Client) models.Client {
				return created
			}))
		},
		Invalidate: func(models.ClientInput, models.Client) []string {
			return []string{clientsKey}
		},
		Success: "Client created",
	}
	return mutation.Run(ctx, s.coord, m, in)
}

// UpdateClient applies a partial update.
func (s *Session) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (models.Client, error) {
	if mutation.IsTempID(id) {
		return models.Client{}, s.reject(errStillSaving)
	}
	m := mutation.Mutation[clientUpdate, models.Client]{
		Name: "update client",
		Keys: func(clientUpdate) []string { return []string{clientsKey} },
		Apply: func(tx *cache.Txn, u clientUpdate) {
			now := s.now()
			merge := func(c models.Client) models.Client {
				u.Patch.ApplyTo(&c)
				c.UpdatedAt = now
				return c
			}
			editLists(tx, clientsKey, replaceWhere(clientID(u.ID), merge))
			editEntry(tx, clientKey(u.ID), func(d models.ClientDetail) models.ClientDetail {
				d.Client = merge(d.Client)
				return d
			})
		},
		Remote: func(ctx context.Context, u clientUpdate) (models.Client, error) {
			return s.api.UpdateClient(ctx, u.ID, u.Patch)
		},
		Reconcile: func(tx *cache.Txn, u clientUpdate, updated models.Client) {
			editLists(tx, clientsKey, replaceWhere(clientID(u.ID), func(models.Client) models.Client {
				return updated
			}))
			editEntry(tx, clientKey(u.ID), func(d models.ClientDetail) models.ClientDetail {
				d.Client = updated
				return d
			})
		},
		Invalidate: func(u clientUpdate, _ models.Client) []string {
			return []string{clientsKey, clientKey(u.ID), projectsKey}
		},
		Success: "Client updated",
	}
	return mutation.Run(ctx, s.coord, m, clientUpdate{ID: id, Patch: patch})
}

// DeleteClient removes a client. Its projects stay and lose their client.
func (s *Session) DeleteClient(ctx context.Context, id string) error {
	if mutation.IsTempID(id) {
		return s.reject(errStillSaving)
	}
	m := mutation.Mutation[string, struct{}]{
		Name: "delete client",
		Keys: func(string) []string { return []string{clientsKey, projectsKey} },
		Apply: func(tx *cache.Txn, id string) {
			editLists(tx, clientsKey, removeWhere(clientID(id)))
			detach := func(p models.Project) models.Project {
				if p.ClientID != nil && *p.ClientID == id {
					p.ClientID = nil
				}
				return p
			}
			editLists(tx, projectsKey, replaceWhere(func(p models.ProjectSummary) bool {
				return p.ClientID != nil && *p.ClientID == id
			}, func(p models.ProjectSummary) models.ProjectSummary {
				p.Project = detach(p.Project)
				p.Client = nil
				return p
			}))
			for _, k := range tx.Keys(projectsKey) {
				d, ok := cache.Lookup[models.ProjectDetail](tx, k)
				if ok && d.ClientID != nil && *d.ClientID == id {
					d.Project = detach(d.Project)
					d.Client = nil
					tx.Set(k, d)
				}
			}
		},
		Remote: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, s.api.DeleteClient(ctx, id)
		},
		Invalidate: func(string, struct{}) []string {
			return []string{clientsKey, projectsKey}
		},
		Success: "Client deleted",
	}
	_, err := mutation.Run(ctx, s.coord, m, id)
	return err
}
