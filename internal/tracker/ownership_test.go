package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"jobtracker/internal/errcode"
)

// ownedCase drives one service through the four owner-scoped operations.
type ownedCase struct {
	name   string
	seed   func(t *testing.T, ctx context.Context, db *gorm.DB, owner uint) uint
	get    func(ctx context.Context, db *gorm.DB, owner, id uint) error
	update func(ctx context.Context, db *gorm.DB, owner, id uint) error
	delete func(ctx context.Context, db *gorm.DB, owner, id uint) error
	count  func(ctx context.Context, db *gorm.DB, owner uint) (int, error)
}

func seedApplication(t *testing.T, ctx context.Context, db *gorm.DB, owner uint) uint {
	t.Helper()
	company, err := NewCompanyService(db).Create(ctx, owner, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	app, err := NewApplicationService(db).Create(ctx, owner, ApplicationInput{CompanyID: Some(company.ID), Position: Some("SWE")})
	require.NoError(t, err)
	return app.ID
}

func ownedCases() []ownedCase {
	return []ownedCase{
		{
			name: "country",
			seed: func(t *testing.T, ctx context.Context, db *gorm.DB, owner uint) uint {
				v, err := NewCountryService(db).Create(ctx, owner, CountryInput{Name: Some("Germany")})
				require.NoError(t, err)
				return v.ID
			},
			get: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewCountryService(db).Get(ctx, owner, id)
				return err
			},
			update: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewCountryService(db).Update(ctx, owner, id, CountryInput{Name: Some("Stolen")})
				return err
			},
			delete: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				return NewCountryService(db).Delete(ctx, owner, id)
			},
			count: func(ctx context.Context, db *gorm.DB, owner uint) (int, error) {
				list, err := NewCountryService(db).List(ctx, owner)
				return len(list), err
			},
		},
		{
			name: "tag",
			seed: func(t *testing.T, ctx context.Context, db *gorm.DB, owner uint) uint {
				v, err := NewTagService(db).Create(ctx, owner, TagInput{Name: Some("remote")})
				require.NoError(t, err)
				return v.ID
			},
			get: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewTagService(db).Get(ctx, owner, id)
				return err
			},
			update: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewTagService(db).Update(ctx, owner, id, TagInput{Name: Some("stolen")})
				return err
			},
			delete: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				return NewTagService(db).Delete(ctx, owner, id)
			},
			count: func(ctx context.Context, db *gorm.DB, owner uint) (int, error) {
				list, err := NewTagService(db).List(ctx, owner)
				return len(list), err
			},
		},
		{
			name: "resume",
			seed: func(t *testing.T, ctx context.Context, db *gorm.DB, owner uint) uint {
				v, err := NewResumeService(db, newFakeBlobs(), nil, 0, nil).Create(ctx, owner, ResumeInput{File: pdfUpload("cv.pdf")})
				require.NoError(t, err)
				return v.ID
			},
			get: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewResumeService(db, newFakeBlobs(), nil, 0, nil).Get(ctx, owner, id)
				return err
			},
			update: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewResumeService(db, newFakeBlobs(), nil, 0, nil).Update(ctx, owner, id, ResumeInput{Tags: tagNames("x")})
				return err
			},
			delete: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				return NewResumeService(db, newFakeBlobs(), nil, 0, nil).Delete(ctx, owner, id)
			},
			count: func(ctx context.Context, db *gorm.DB, owner uint) (int, error) {
				list, err := NewResumeService(db, newFakeBlobs(), nil, 0, nil).List(ctx, owner)
				return len(list), err
			},
		},
		{
			name: "application",
			seed: seedApplication,
			get: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewApplicationService(db).Get(ctx, owner, id)
				return err
			},
			update: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewApplicationService(db).Update(ctx, owner, id, ApplicationInput{Position: Some("CTO")})
				return err
			},
			delete: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				return NewApplicationService(db).Delete(ctx, owner, id)
			},
			count: func(ctx context.Context, db *gorm.DB, owner uint) (int, error) {
				list, err := NewApplicationService(db).List(ctx, owner)
				return len(list), err
			},
		},
		{
			name: "interview",
			seed: func(t *testing.T, ctx context.Context, db *gorm.DB, owner uint) uint {
				appID := seedApplication(t, ctx, db, owner)
				v, err := NewInterviewService(db).Create(ctx, owner, InterviewInput{Application: Some(appID), Date: Some("2024-05-01")})
				require.NoError(t, err)
				return v.ID
			},
			get: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewInterviewService(db).Get(ctx, owner, id)
				return err
			},
			update: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				_, err := NewInterviewService(db).Update(ctx, owner, id, InterviewInput{Note: Some("stolen")})
				return err
			},
			delete: func(ctx context.Context, db *gorm.DB, owner, id uint) error {
				return NewInterviewService(db).Delete(ctx, owner, id)
			},
			count: func(ctx context.Context, db *gorm.DB, owner uint) (int, error) {
				list, err := NewInterviewService(db).List(ctx, owner)
				return len(list), err
			},
		},
	}
}

func TestOtherOwnersRowsAreNotFound(t *testing.T) {
	for _, tc := range ownedCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestDB(t)
			alice := newOwner(t, db, "alice@example.com")
			bob := newOwner(t, db, "bob@example.com")
			id := tc.seed(t, ctx, db, alice)

			assert.ErrorIs(t, tc.get(ctx, db, bob, id), errcode.ErrNotFound)
			assert.ErrorIs(t, tc.update(ctx, db, bob, id), errcode.ErrNotFound)
			assert.ErrorIs(t, tc.delete(ctx, db, bob, id), errcode.ErrNotFound)

			n, err := tc.count(ctx, db, bob)
			require.NoError(t, err)
			assert.Zero(t, n)

			// 对方的尝试不影响本人数据
			require.NoError(t, tc.get(ctx, db, alice, id))
			n, err = tc.count(ctx, db, alice)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, tc.delete(ctx, db, alice, id))
			assert.ErrorIs(t, tc.get(ctx, db, alice, id), errcode.ErrNotFound)
		})
	}
}

func TestSameNameUnderDifferentOwners(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := newOwner(t, db, "alice@example.com")
	bob := newOwner(t, db, "bob@example.com")

	countries := NewCountryService(db)
	aliceCountry, err := countries.Create(ctx, alice, CountryInput{Name: Some("Germany")})
	require.NoError(t, err)
	bobCountry, err := countries.Create(ctx, bob, CountryInput{Name: Some("Germany")})
	require.NoError(t, err)
	assert.NotEqual(t, aliceCountry.ID, bobCountry.ID)

	tags := NewTagService(db)
	aliceTag, err := tags.Create(ctx, alice, TagInput{Name: Some("remote")})
	require.NoError(t, err)
	bobTag, err := tags.Create(ctx, bob, TagInput{Name: Some("remote")})
	require.NoError(t, err)
	assert.NotEqual(t, aliceTag.ID, bobTag.ID)

	// 改名冲突只在同一用户内判断
	bobOther, err := tags.Create(ctx, bob, TagInput{Name: Some("onsite")})
	require.NoError(t, err)
	_, err = tags.Update(ctx, bob, bobOther.ID, TagInput{Name: Some("hybrid")})
	require.NoError(t, err)
	_, err = tags.Create(ctx, alice, TagInput{Name: Some("hybrid")})
	require.NoError(t, err)

	aliceList, err := tags.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote", "hybrid"}, viewNames(aliceList))
}
