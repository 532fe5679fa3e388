package tracker

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/errcode"
)

// InterviewInput is the write shape of an Interview. Application is the id of an owned application.
type InterviewInput struct {
	Application Optional[uint]     `json:"application"`
	Date        Optional[string]   `json:"date"`
	Note        Optional[string]   `json:"note"`
	Tags        Optional[TagNames] `json:"tags"`
}

type InterviewService struct {
	db *gorm.DB
}

func NewInterviewService(db *gorm.DB) *InterviewService {
	return &InterviewService{db: db}
}

func (s *InterviewService) Create(ctx context.Context, ownerID uint, in InterviewInput) (*InterviewView, error) {
	errs := &errcode.ValidationError{}
	checkRequiredRef(errs, "application", in.Application, true)
	date, _ := checkDate(errs, "date", in.Date, true)
	tagNames := checkTagNames(errs, "tags", in.Tags)
	interview := Interview{OwnerID: ownerID, Date: date, Note: checkNote(in.Note)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appID, err := nullableRef[Application](tx, ownerID, in.Application, "application", errs)
		if err != nil {
			return err
		}
		if appID != nil {
			interview.ApplicationID = *appID
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&interview).Error; err != nil {
			return fmt.Errorf("create interview: %w", err)
		}
		tags, err := resolveTags(tx, ownerID, tagNames)
		if err != nil {
			return err
		}
		return replaceTags(tx, &interview, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, interview.ID)
}

func (s *InterviewService) List(ctx context.Context, ownerID uint) ([]InterviewView, error) {
	var interviews []Interview
	err := preloadInterview(s.db.WithContext(ctx)).
		Scopes(ownedBy(ownerID)).
		Order("id").
		Find(&interviews).Error
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	views := make([]InterviewView, 0, len(interviews))
	for i := range interviews {
		views = append(views, *newInterviewView(&interviews[i]))
	}
	return views, nil
}

func (s *InterviewService) Get(ctx context.Context, ownerID, id uint) (*InterviewView, error) {
	interview, err := findOwned[Interview](preloadInterview(s.db.WithContext(ctx)), ownerID, id)
	if err != nil {
		return nil, err
	}
	return newInterviewView(interview), nil
}

func (s *InterviewService) Update(ctx context.Context, ownerID, id uint, in InterviewInput) (*InterviewView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		interview, err := findOwned[Interview](tx, ownerID, id)
		if err != nil {
			return err
		}

		errs := &errcode.ValidationError{}
		checkRequiredRef(errs, "application", in.Application, false)
		date, dateOK := checkDate(errs, "date", in.Date, false)
		tagNames := checkTagNames(errs, "tags", in.Tags)

		appID, err := nullableRef[Application](tx, ownerID, in.Application, "application", errs)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if appID != nil {
			interview.ApplicationID = *appID
		}
		if dateOK {
			interview.Date = date
		}
		if in.Note.Set {
			interview.Note = checkNote(in.Note)
		}
		if err := tx.Omit(clause.Associations).Save(interview).Error; err != nil {
			return fmt.Errorf("update interview: %w", err)
		}
		if !in.Tags.Present() {
			return nil
		}
		tags, err := resolveTags(tx, ownerID, tagNames)
		if err != nil {
			return err
		}
		return replaceTags(tx, interview, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

func (s *InterviewService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		interview, err := findOwned[Interview](tx, ownerID, id)
		if err != nil {
			return err
		}
		return deleteInterview(tx, interview)
	})
}
