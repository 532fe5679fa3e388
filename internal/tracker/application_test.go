package tracker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/database"
	"jobtracker/internal/errcode"
)

func TestAcmeApplicationScenario(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := newOwner(t, db, "alice@example.com")
	bob := newOwner(t, db, "bob@example.com")

	acme, err := NewCompanyService(db).Create(ctx, alice, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	assert.Empty(t, acme.Tags)

	tagSvc := NewTagService(db)
	tag, err := tagSvc.Create(ctx, alice, TagInput{Name: Some("priority")})
	require.NoError(t, err)

	svc := NewApplicationService(db)
	app, err := svc.Create(ctx, alice, ApplicationInput{
		CompanyID: Some(acme.ID),
		Position:  Some("SWE"),
		Status:    Some(database.StatusApplied),
		Note:      Some(""),
		TagIDs:    Some([]uint{tag.ID}),
	})
	require.NoError(t, err)
	require.NotNil(t, app.Company)
	assert.Equal(t, acme.ID, app.Company.ID)
	assert.Equal(t, []string{"priority"}, viewNames(app.Tags))

	before := app.UpdatedAt
	time.Sleep(5 * time.Millisecond)
	cleared, err := svc.Update(ctx, alice, app.ID, ApplicationInput{TagIDs: Some([]uint{})})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)
	assert.Equal(t, "SWE", cleared.Position)
	assert.True(t, cleared.UpdatedAt.After(before))

	_, err = svc.Get(ctx, bob, app.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestApplicationReadShapeHasNoIDs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := newOwner(t, db, "a@example.com")

	company, err := NewCompanyService(db).Create(ctx, owner, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	app, err := NewApplicationService(db).Create(ctx, owner, ApplicationInput{CompanyID: Some(company.ID), Position: Some("SWE")})
	require.NoError(t, err)
	assert.Equal(t, database.StatusApplied, app.Status)

	raw, err := json.Marshal(app)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"company_id", "country_id", "resume_id", "tag_ids"} {
		assert.NotContains(t, fields, key)
	}
	assert.Contains(t, fields, "company")
}

func TestApplicationValidation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := newOwner(t, db, "alice@example.com")
	bob := newOwner(t, db, "bob@example.com")
	svc := NewApplicationService(db)

	_, err := svc.Create(ctx, alice, ApplicationInput{})
	requireFieldError(t, err, "company_id")
	requireFieldError(t, err, "position")

	foreign, err := NewCompanyService(db).Create(ctx, bob, CompanyInput{Name: Some("Bob Corp")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, ApplicationInput{
		CompanyID: Some(foreign.ID),
		Position:  Some("SWE"),
		Status:    Some("ghosted"),
	})
	assert.Equal(t, []string{invalidPK(foreign.ID)}, requireFieldError(t, err, "company_id"))
	assert.Equal(t, []string{`"ghosted" is not a valid choice.`}, requireFieldError(t, err, "status"))

	company, err := NewCompanyService(db).Create(ctx, alice, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, ApplicationInput{
		CompanyID: Some(company.ID),
		Position:  Some("SWE"),
		TagIDs:    Some([]uint{1, 2, 3, 4, 5, 6}),
	})
	assert.Equal(t, []string{msgTooManyTags}, requireFieldError(t, err, "tag_ids"))

	_, err = svc.Create(ctx, alice, ApplicationInput{
		CompanyID: Some(company.ID),
		Position:  Some("SWE"),
		TagIDs:    Some([]uint{9999}),
	})
	assert.Equal(t, []string{invalidPK(9999)}, requireFieldError(t, err, "tag_ids"))
}

func TestApplicationTagIDBoundary(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := newOwner(t, db, "a@example.com")

	company, err := NewCompanyService(db).Create(ctx, owner, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	ids := make([]uint, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		tag, err := NewTagService(db).Create(ctx, owner, TagInput{Name: Some(name)})
		require.NoError(t, err)
		ids = append(ids, tag.ID)
	}

	app, err := NewApplicationService(db).Create(ctx, owner, ApplicationInput{
		CompanyID: Some(company.ID),
		Position:  Some("SWE"),
		TagIDs:    Some(ids),
	})
	require.NoError(t, err)
	assert.Len(t, app.Tags, 5)
}

func TestApplicationUpdateRelations(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := newOwner(t, db, "a@example.com")

	company, err := NewCompanyService(db).Create(ctx, owner, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	country, err := NewCountryService(db).Create(ctx, owner, CountryInput{Name: Some("Spain")})
	require.NoError(t, err)
	resume, err := NewResumeService(db, newFakeBlobs(), nil, 0, nil).Create(ctx, owner, ResumeInput{File: pdfUpload("cv.pdf")})
	require.NoError(t, err)

	svc := NewApplicationService(db)
	app, err := svc.Create(ctx, owner, ApplicationInput{
		CompanyID: Some(company.ID),
		CountryID: Some(country.ID),
		ResumeID:  Some(resume.ID),
		Position:  Some("SWE"),
	})
	require.NoError(t, err)
	require.NotNil(t, app.Resume)
	require.NotNil(t, app.Country)

	updated, err := svc.Update(ctx, owner, app.ID, ApplicationInput{
		CountryID: Null[uint](),
		Status:    Some(database.StatusInterviewing),
		Note:      Some("recruiter call booked"),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Country)
	assert.NotNil(t, updated.Resume)
	assert.Equal(t, database.StatusInterviewing, updated.Status)
	assert.Equal(t, "recruiter call booked", updated.Note)

	_, err = svc.Update(ctx, owner, app.ID, ApplicationInput{CompanyID: Null[uint]()})
	assert.Equal(t, []string{msgNull}, requireFieldError(t, err, "company_id"))
}

func TestApplicationDeleteRemovesInterviews(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := newOwner(t, db, "a@example.com")

	company, err := NewCompanyService(db).Create(ctx, owner, CompanyInput{Name: Some("Acme")})
	require.NoError(t, err)
	app, err := NewApplicationService(db).Create(ctx, owner, ApplicationInput{CompanyID: Some(company.ID), Position: Some("SWE")})
	require.NoError(t, err)
	_, err = NewInterviewService(db).Create(ctx, owner, InterviewInput{Application: Some(app.ID), Date: Some("2024-01-02")})
	require.NoError(t, err)

	require.NoError(t, NewApplicationService(db).Delete(ctx, owner, app.ID))

	list, err := NewInterviewService(db).List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = NewCompanyService(db).Get(ctx, owner, company.ID)
	require.NoError(t, err)
}
