package postingstore

import (
	"context"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ===== Formulas =====

type memFormulas struct {
	t *table[primitive.ObjectID, models.PostingFormula]
}

func newMemFormulas() *memFormulas {
	return &memFormulas{t: newTable[primitive.ObjectID, models.PostingFormula]()}
}

func (m *memFormulas) Insert(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error) {
	if _, err := m.FindByName(ctx, f.Name); err == nil {
		return models.PostingFormula{}, common.ErrDuplicate
	}
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	now := nowMilli()
	f.CreatedAt, f.UpdatedAt = now, now
	if err := m.t.insert(f.ID, f); err != nil {
		return models.PostingFormula{}, err
	}
	return f, nil
}

func (m *memFormulas) FindByID(ctx context.Context, id primitive.ObjectID) (models.PostingFormula, error) {
	return m.t.get(id)
}

func (m *memFormulas) FindByName(ctx context.Context, name string) (models.PostingFormula, error) {
	found := m.t.filter(func(f models.PostingFormula) bool { return f.Name == name })
	if len(found) == 0 {
		return models.PostingFormula{}, common.ErrNotFound
	}
	return found[0], nil
}

func (m *memFormulas) FindSystemDefault(ctx context.Context) (models.PostingFormula, error) {
	found := m.t.filter(func(f models.PostingFormula) bool { return f.IsSystemDefault })
	if len(found) == 0 {
		return models.PostingFormula{}, common.ErrNotFound
	}
	return found[0], nil
}

func (m *memFormulas) Replace(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error) {
	return m.t.update(f.ID, func(cur *models.PostingFormula) error {
		f.CreatedAt = cur.CreatedAt
		f.UpdatedAt = nowMilli()
		*cur = f
		return nil
	})
}

func (m *memFormulas) Delete(ctx context.Context, id primitive.ObjectID) error {
	if !m.t.remove(id) {
		return common.ErrNotFound
	}
	return nil
}

func (m *memFormulas) List(ctx context.Context) ([]models.PostingFormula, error) {
	return m.t.filter(func(models.PostingFormula) bool { return true }), nil
}

// ===== Groups =====

type memGroups struct {
	t *table[primitive.ObjectID, models.AccountGroup]
}

func newMemGroups() *memGroups {
	return &memGroups{t: newTable[primitive.ObjectID, models.AccountGroup]()}
}

func (m *memGroups) Insert(ctx context.Context, g models.AccountGroup) (models.AccountGroup, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	basesvc.ApplyInsertDefaults(&g)
	now := nowMilli()
	g.CreatedAt, g.UpdatedAt = now, now
	if err := m.t.insert(g.ID, g); err != nil {
		return models.AccountGroup{}, err
	}
	return g, nil
}

func (m *memGroups) FindByID(ctx context.Context, id primitive.ObjectID) (models.AccountGroup, error) {
	return m.t.get(id)
}

func (m *memGroups) SetFormula(ctx context.Context, id primitive.ObjectID, formulaID *primitive.ObjectID) error {
	_, err := m.t.update(id, func(g *models.AccountGroup) error {
		g.FormulaID = formulaID
		g.UpdatedAt = nowMilli()
		return nil
	})
	return err
}

func (m *memGroups) RecordPost(ctx context.Context, id primitive.ObjectID, at int64) error {
	_, err := m.t.update(id, func(g *models.AccountGroup) error {
		g.TotalPosts++
		if at > g.LastPostAt {
			g.LastPostAt = at
		}
		g.UpdatedAt = nowMilli()
		return nil
	})
	return err
}

// ===== Group accounts =====

type memGroupAccounts struct {
	t *table[[2]primitive.ObjectID, models.GroupAccount]
}

func newMemGroupAccounts() *memGroupAccounts {
	return &memGroupAccounts{t: newTable[[2]primitive.ObjectID, models.GroupAccount]()}
}

func (m *memGroupAccounts) Insert(ctx context.Context, ga models.GroupAccount) (models.GroupAccount, error) {
	if ga.ID.IsZero() {
		ga.ID = primitive.NewObjectID()
	}
	basesvc.ApplyInsertDefaults(&ga)
	now := nowMilli()
	ga.CreatedAt, ga.UpdatedAt = now, now
	if err := m.t.insert([2]primitive.ObjectID{ga.GroupID, ga.AccountID}, ga); err != nil {
		return models.GroupAccount{}, common.WithDetails(common.ErrDuplicate, map[string]interface{}{
			"groupId": ga.GroupID.Hex(), "accountId": ga.AccountID.Hex(),
		})
	}
	return ga, nil
}

func (m *memGroupAccounts) Find(ctx context.Context, groupID, accountID primitive.ObjectID) (models.GroupAccount, error) {
	return m.t.get([2]primitive.ObjectID{groupID, accountID})
}

func (m *memGroupAccounts) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupAccount, error) {
	return m.t.filter(func(ga models.GroupAccount) bool { return ga.GroupID == groupID && ga.IsActive }), nil
}

func (m *memGroupAccounts) ListByAccount(ctx context.Context, accountID primitive.ObjectID) ([]models.GroupAccount, error) {
	return m.t.filter(func(ga models.GroupAccount) bool { return ga.AccountID == accountID && ga.IsActive }), nil
}

// ===== Accounts =====

type memAccounts struct {
	t *table[primitive.ObjectID, models.SocialAccount]
}

func newMemAccounts() *memAccounts {
	return &memAccounts{t: newTable[primitive.ObjectID, models.SocialAccount]()}
}

func (m *memAccounts) Insert(ctx context.Context, a models.SocialAccount) (models.SocialAccount, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	basesvc.ApplyInsertDefaults(&a)
	now := nowMilli()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := m.t.insert(a.ID, a); err != nil {
		return models.SocialAccount{}, err
	}
	return a, nil
}

func (m *memAccounts) FindByID(ctx context.Context, id primitive.ObjectID) (models.SocialAccount, error) {
	return m.t.get(id)
}

func (m *memAccounts) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.SocialAccount, error) {
	out := make([]models.SocialAccount, 0, len(ids))
	for _, id := range ids {
		if a, err := m.t.get(id); err == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAccounts) TouchLastPost(ctx context.Context, id primitive.ObjectID, at, minGapMs int64) (bool, error) {
	claimed := false
	_, err := m.t.update(id, func(a *models.SocialAccount) error {
		if minGapMs > 0 && a.LastPostAt > 0 && absDiff(at, a.LastPostAt) < minGapMs {
			return nil
		}
		if at > a.LastPostAt {
			a.LastPostAt = at
		}
		a.UpdatedAt = nowMilli()
		claimed = true
		return nil
	})
	return claimed, err
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// ===== Contents =====

type memContents struct {
	t *table[primitive.ObjectID, models.ContentItem]
}

func newMemContents() *memContents {
	return &memContents{t: newTable[primitive.ObjectID, models.ContentItem]()}
}

func (m *memContents) Insert(ctx context.Context, c models.ContentItem) (models.ContentItem, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	basesvc.ApplyInsertDefaults(&c)
	now := nowMilli()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := m.t.insert(c.ID, c); err != nil {
		return models.ContentItem{}, err
	}
	return c, nil
}

func (m *memContents) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error) {
	out := make([]models.ContentItem, 0, len(ids))
	for _, id := range ids {
		if c, err := m.t.get(id); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContents) ListReady(ctx context.Context, platform string, limit int64) ([]models.ContentItem, error) {
	items := m.t.filter(func(c models.ContentItem) bool {
		return c.Status == "ready" && (c.Platform == "" || c.Platform == platform)
	})
	return limitSlice(items, limit), nil
}

// ===== Scheduled posts =====

type memScheduledPosts struct {
	t *table[primitive.ObjectID, models.ScheduledPost]
}

func newMemScheduledPosts() *memScheduledPosts {
	return &memScheduledPosts{t: newTable[primitive.ObjectID, models.ScheduledPost]()}
}

func (m *memScheduledPosts) Insert(ctx context.Context, p models.ScheduledPost) (models.ScheduledPost, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := nowMilli()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := m.t.insert(p.ID, p); err != nil {
		return models.ScheduledPost{}, err
	}
	return p, nil
}

func (m *memScheduledPosts) FindByID(ctx context.Context, id primitive.ObjectID) (models.ScheduledPost, error) {
	return m.t.get(id)
}
