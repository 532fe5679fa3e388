package tracker

import (
	"time"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// TagView is the read shape of a Tag.
type TagView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CountryView is the read shape of a Country.
type CountryView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CompanyView is the read shape of a Company. Tags mirrors TagDetails.
type CompanyView struct {
	ID            uint         `json:"id"`
	Name          string       `json:"name"`
	Link          string       `json:"link"`
	CountryDetail *CountryView `json:"country_detail"`
	TagDetails    []TagView    `json:"tag_details"`
	Tags          []TagView    `json:"tags"`
}

// ResumeView is the read shape of a Resume. The stored file never leaves through it.
type ResumeView struct {
	ID        uint      `json:"id"`
	Tags      []TagView `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplicationView is the read shape of an Application with every relation expanded.
type ApplicationView struct {
	ID        uint         `json:"id"`
	Company   *CompanyView `json:"company"`
	Country   *CountryView `json:"country"`
	Resume    *ResumeView  `json:"resume"`
	Tags      []TagView    `json:"tags"`
	Position  string       `json:"position"`
	Link      string       `json:"link"`
	Note      string       `json:"note"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// InterviewView is the read shape of an Interview; Application is the full nested view.
type InterviewView struct {
	ID          uint             `json:"id"`
	Application *ApplicationView `json:"application"`
	Tags        []TagView        `json:"tags"`
	Date        string           `json:"date"`
	Note        string           `json:"note"`
}

func newTagViews(tags []Tag) []TagView {
	views := make([]TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, TagView{ID: t.ID, Name: t.Name})
	}
	return views
}

func newTagView(t Tag) TagView {
	return TagView{ID: t.ID, Name: t.Name}
}

func newCountryView(c *Country) *CountryView {
	if c == nil {
		return nil
	}
	return &CountryView{ID: c.ID, Name: c.Name}
}

func newCompanyView(c *Company) *CompanyView {
	if c == nil {
		return nil
	}
	tags := newTagViews(c.Tags)
	return &CompanyView{
		ID:            c.ID,
		Name:          c.Name,
		Link:          c.Link,
		CountryDetail: newCountryView(c.Country),
		TagDetails:    tags,
		Tags:          tags,
	}
}

func newResumeView(r *Resume) *ResumeView {
	if r == nil {
		return nil
	}
	return &ResumeView{
		ID:        r.ID,
		Tags:      newTagViews(r.Tags),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newApplicationView(a *Application) *ApplicationView {
	if a == nil {
		return nil
	}
	return &ApplicationView{
		ID:        a.ID,
		Company:   newCompanyView(a.Company),
		Country:   newCountryView(a.Country),
		Resume:    newResumeView(a.Resume),
		Tags:      newTagViews(a.Tags),
		Position:  a.Position,
		Link:      a.Link,
		Note:      a.Note,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func newInterviewView(iv *Interview) *InterviewView {
	return &InterviewView{
		ID:          iv.ID,
		Application: newApplicationView(iv.Application),
		Tags:        newTagViews(iv.Tags),
		Date:        time.Time(iv.Date).Format(dateLayout),
		Note:        iv.Note,
	}
}

// Preload sets for each read shape. prefix is "" or the association path ending in ".".
func preloadCompany(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix+"Country").
		Preload(prefix+"Tags", orderTags)
}

func preloadResume(db *gorm.DB, prefix string) *gorm.DB {
	return db.Preload(prefix+"Tags", orderTags)
}

func preloadApplication(db *gorm.DB, prefix string) *gorm.DB {
	db = preloadCompany(db.Preload(prefix+"Company"), prefix+"Company.")
	db = preloadResume(db.Preload(prefix+"Resume"), prefix+"Resume.")
	return db.
		Preload(prefix+"Country").
		Preload(prefix+"Tags", orderTags)
}

func preloadInterview(db *gorm.DB) *gorm.DB {
	db = preloadApplication(db.Preload("Application"), "Application.")
	return db.Preload("Tags", orderTags)
}
