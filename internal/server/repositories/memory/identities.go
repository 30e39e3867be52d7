package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/google/uuid"
)

type IdentityRepository struct {
	mu      sync.Mutex
	byID    map[string]*models.Identity
	byEmail map[string]string
	// order holds ids in creation order.
	order []string
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[string]*models.Identity),
		byEmail: make(map[string]string),
	}
}

func clone(i *models.Identity) *models.Identity {
	c := *i
	if i.ProfileImage != nil {
		ref := *i.ProfileImage
		c.ProfileImage = &ref
	}
	return &c
}

func (r *IdentityRepository) Create(_ context.Context, username, email, passwordHash string) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, common.ErrDuplicateIdentity
	}

	now := time.Now().UTC()
	i := &models.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[i.ID] = i
	r.byEmail[email] = i.ID
	r.order = append(r.order, i.ID)

	return clone(i), nil
}

func (r *IdentityRepository) List(_ context.Context, limit, offset int) ([]*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if offset >= len(r.order) {
		return nil, nil
	}
	ids := r.order[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}

	result := make([]*models.Identity, 0, len(ids))
	for _, id := range ids {
		result = append(result, clone(r.byID[id]))
	}
	return result, nil
}

func (r *IdentityRepository) UpdateProfile(_ context.Context, id string, u models.ProfileUpdate) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	if u.Email != "" && u.Email != i.Email {
		if _, taken := r.byEmail[u.Email]; taken {
			return nil, common.ErrDuplicateIdentity
		}
		delete(r.byEmail, i.Email)
		r.byEmail[u.Email] = id
		i.Email = u.Email
	}
	if u.Username != "" {
		i.Username = u.Username
	}
	if u.PasswordHash != "" {
		i.PasswordHash = u.PasswordHash
	}
	i.UpdatedAt = time.Now().UTC()

	return clone(i), nil
}

func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *IdentityRepository) FindByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(i), nil
}

func (r *IdentityRepository) UpdateAssetReference(_ context.Context, id string, ref *models.AssetReference) (*models.Identity, *models.AssetReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}

	prev := i.ProfileImage
	if ref != nil {
		c := *ref
		i.ProfileImage = &c
	} else {
		i.ProfileImage = nil
	}
	i.UpdatedAt = time.Now().UTC()

	return clone(i), prev, nil
}

func (r *IdentityRepository) Delete(_ context.Context, id string) (*models.AssetReference, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, false, nil
	}
	delete(r.byID, id)
	delete(r.byEmail, i.Email)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })

	return i.ProfileImage, true, nil
}

// Count returns the number of stored identities.
func (r *IdentityRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
