package boltdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chama_admin/internal/domain/member"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"
)

type MemberStore struct {
	db *DB
}

func NewMemberStore(db *DB) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) Create(ctx context.Context, m *member.Member) error {
	return s.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMembers)
		if b.Get([]byte(m.ID)) != nil {
			return member.ErrDuplicateMember
		}
		m.CreatedAt = now()
		m.UpdatedAt = m.CreatedAt
		if err := put(b, m.ID, m); err != nil {
			return fmt.Errorf("error creating member: %w", err)
		}
		return nil
	})
}

func (s *MemberStore) GetByID(ctx context.Context, id string) (*member.Member, error) {
	var m member.Member
	err := s.db.view(ctx, func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(bucketMembers), id, &m)
		if err != nil {
			return fmt.Errorf("error getting member by ID: %w", err)
		}
		if !found {
			return member.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) ListAll(ctx context.Context) ([]*member.Member, error) {
	members := make([]*member.Member, 0)
	err := s.db.view(ctx, func(tx *bolt.Tx) error {
		return each(tx.Bucket(bucketMembers), func(m *member.Member) error {
			members = append(members, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].FullName != members[j].FullName {
			return members[i].FullName < members[j].FullName
		}
		return members[i].ID < members[j].ID
	})
	return members, nil
}

func (s *MemberStore) SetAllBalanceVisible(ctx context.Context, visible bool, exceptID string) (int64, error) {
	return s.updateAll(ctx, exceptID, func(m *member.Member) {
		m.BalanceVisible = visible
	})
}

func (s *MemberStore) ResetAllAdjustments(ctx context.Context, exceptID string) (int64, error) {
	return s.updateAll(ctx, exceptID, func(m *member.Member) {
		m.BalanceAdjustment = decimal.Zero
	})
}

// updateAll applies mutate to every member except exceptID and rewrites them.
func (s *MemberStore) updateAll(ctx context.Context, exceptID string, mutate func(*member.Member)) (int64, error) {
	var n int64
	err := s.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMembers)
		var touched []*member.Member
		err := each(b, func(m *member.Member) error {
			if m.ID == exceptID {
				return nil
			}
			mutate(m)
			m.UpdatedAt = now()
			touched = append(touched, m)
			return nil
		})
		if err != nil {
			return err
		}
		// Puts are deferred until after ForEach; bbolt forbids mutating a bucket mid-iteration.
		for _, m := range touched {
			if err := put(b, m.ID, m); err != nil {
				return err
			}
		}
		n = int64(len(touched))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error updating members: %w", err)
	}
	return n, nil
}

func (s *MemberStore) AddAdjustment(ctx context.Context, id string, delta decimal.Decimal) (*member.Member, error) {
	var m member.Member
	err := s.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMembers)
		found, err := get(b, id, &m)
		if err != nil {
			return err
		}
		if !found {
			return member.ErrNotFound
		}
		m.BalanceAdjustment = m.BalanceAdjustment.Add(delta)
		m.UpdatedAt = now()
		return put(b, id, &m)
	})
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error applying balance adjustment: %w", err)
	}
	return &m, nil
}

func (s *MemberStore) RecordAdjustment(ctx context.Context, a *member.Adjustment) error {
	return s.db.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMembers).Get([]byte(a.MemberID)) == nil {
			return member.ErrNotFound
		}
		a.CreatedAt = now()
		if err := put(tx.Bucket(bucketAdjustments), a.ID, a); err != nil {
			return fmt.Errorf("error recording balance adjustment: %w", err)
		}
		return nil
	})
}

func (s *MemberStore) ListAdjustments(ctx context.Context, memberID string) ([]*member.Adjustment, error) {
	adjustments := make([]*member.Adjustment, 0)
	err := s.db.view(ctx, func(tx *bolt.Tx) error {
		return each(tx.Bucket(bucketAdjustments), func(a *member.Adjustment) error {
			if a.MemberID == memberID {
				adjustments = append(adjustments, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing balance adjustments: %w", err)
	}
	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].CreatedAt.After(adjustments[j].CreatedAt)
	})
	return adjustments, nil
}
