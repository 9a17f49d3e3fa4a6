package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
	"github.com/noah-isme/teaching-portal-api/pkg/events"
)

var errStoreDown = errors.New("store unavailable")

type fakeCategories struct {
	items *fakeItems
	rows  []models.GradeCategory
	seq   int
}

func (f *fakeCategories) ListByClass(ctx context.Context, classID string) ([]models.GradeCategory, error) {
	var out []models.GradeCategory
	for _, row := range f.rows {
		if row.ClassID != classID {
			continue
		}
		row.Items = f.items.byCategory(row.ID)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeCategories) FindByID(ctx context.Context, id string) (*models.GradeCategory, error) {
	for _, row := range f.rows {
		if row.ID == id {
			copied := row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCategories) Create(ctx context.Context, category *models.GradeCategory) error {
	if category.ID == "" {
		f.seq++
		category.ID = fmt.Sprintf("cat-%d", f.seq)
	}
	f.rows = append(f.rows, *category)
	return nil
}

func (f *fakeCategories) Update(ctx context.Context, category *models.GradeCategory) error {
	for i := range f.rows {
		if f.rows[i].ID == category.ID {
			f.rows[i] = *category
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeCategories) Delete(ctx context.Context, id string) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeItems struct {
	rows []models.GradeItem
	seq  int
}

func (f *fakeItems) byCategory(categoryID string) []models.GradeItem {
	out := []models.GradeItem{}
	for _, row := range f.rows {
		if row.CategoryID == categoryID {
			out = append(out, row)
		}
	}
	return out
}

func (f *fakeItems) classOf(itemID string) string {
	for _, row := range f.rows {
		if row.ID == itemID {
			return row.ClassID
		}
	}
	return ""
}

func (f *fakeItems) FindByID(ctx context.Context, id string) (*models.GradeItem, error) {
	for _, row := range f.rows {
		if row.ID == id {
			copied := row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeItems) List(ctx context.Context, filter models.GradeItemFilter) ([]models.GradeItem, error) {
	var out []models.GradeItem
	for _, row := range f.rows {
		if row.ClassID != filter.ClassID {
			continue
		}
		if filter.PublishedOnly && !row.IsPublished {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, row.ItemType) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func containsType(types []models.GradeItemType, t models.GradeItemType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (f *fakeItems) Create(ctx context.Context, item *models.GradeItem) error {
	if item.ID == "" {
		f.seq++
		item.ID = fmt.Sprintf("item-%d", f.seq)
	}
	f.rows = append(f.rows, *item)
	return nil
}

func (f *fakeItems) Update(ctx context.Context, item *models.GradeItem) error {
	for i := range f.rows {
		if f.rows[i].ID == item.ID {
			f.rows[i] = *item
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeItems) Delete(ctx context.Context, id string) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeScores struct {
	items     *fakeItems
	rows      map[string]models.StudentGradeScore
	bulkErr   error
	bulkCalls int
}

func scoreKey(itemID, studentID string) string { return itemID + "|" + studentID }

func (f *fakeScores) put(score models.StudentGradeScore) {
	if f.rows == nil {
		f.rows = make(map[string]models.StudentGradeScore)
	}
	f.rows[scoreKey(score.GradeItemID, score.StudentID)] = score
}

func (f *fakeScores) get(itemID, studentID string) (models.StudentGradeScore, bool) {
	score, ok := f.rows[scoreKey(itemID, studentID)]
	return score, ok
}

func (f *fakeScores) ListByItem(ctx context.Context, itemID string) ([]models.StudentGradeScore, error) {
	var out []models.StudentGradeScore
	for _, row := range f.rows {
		if row.GradeItemID == itemID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeScores) ListByStudent(ctx context.Context, classID, studentID string) ([]models.StudentGradeScore, error) {
	var out []models.StudentGradeScore
	for _, row := range f.rows {
		if row.StudentID == studentID && f.items.classOf(row.GradeItemID) == classID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeScores) PercentagesByClass(ctx context.Context, classID string) ([]models.ItemPercentage, error) {
	var out []models.ItemPercentage
	for _, row := range f.rows {
		if row.Percentage == nil || f.items.classOf(row.GradeItemID) != classID {
			continue
		}
		out = append(out, models.ItemPercentage{GradeItemID: row.GradeItemID, StudentID: row.StudentID, Percentage: *row.Percentage})
	}
	return out, nil
}

func (f *fakeScores) Upsert(ctx context.Context, score *models.StudentGradeScore) error {
	f.put(*score)
	return nil
}

func (f *fakeScores) BulkUpsert(ctx context.Context, scores []models.StudentGradeScore) error {
	f.bulkCalls++
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for _, score := range scores {
		f.put(score)
	}
	return nil
}

type fakeFinals struct {
	roster       *fakeRoster
	rows         map[string][]models.StudentFinalGrade
	replaceErr   error
	replaceCalls int
}

func (f *fakeFinals) ReplaceForClass(ctx context.Context, classID string, finals []models.StudentFinalGrade) error {
	f.replaceCalls++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.rows == nil {
		f.rows = make(map[string][]models.StudentFinalGrade)
	}
	existing := make(map[string]models.StudentFinalGrade)
	for _, row := range f.rows[classID] {
		existing[row.StudentID] = row
	}
	replaced := make([]models.StudentFinalGrade, len(finals))
	for i := range finals {
		if prev, ok := existing[finals[i].StudentID]; ok {
			finals[i].ID = prev.ID
			finals[i].IsPublished = prev.IsPublished
		} else if finals[i].ID == "" {
			finals[i].ID = "final-" + finals[i].StudentID
		}
		finals[i].ClassID = classID
		replaced[i] = finals[i]
	}
	f.rows[classID] = replaced
	return nil
}

func (f *fakeFinals) ListByClass(ctx context.Context, classID string) ([]models.FinalGradeRow, error) {
	rows := make([]models.FinalGradeRow, 0, len(f.rows[classID]))
	for _, final := range f.rows[classID] {
		student := f.roster.student(classID, final.StudentID)
		rows = append(rows, models.FinalGradeRow{StudentFinalGrade: final, StudentNo: student.StudentNo, StudentName: student.StudentName})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows, nil
}

func (f *fakeFinals) FindByStudent(ctx context.Context, classID, studentID string) (*models.StudentFinalGrade, error) {
	for _, final := range f.rows[classID] {
		if final.StudentID == studentID {
			copied := final
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeFinals) SetPublished(ctx context.Context, classID string, published bool) (int64, error) {
	rows := f.rows[classID]
	for i := range rows {
		rows[i].IsPublished = published
	}
	return int64(len(rows)), nil
}

type fakeRoster struct {
	students map[string][]models.EnrolledStudent
}

func (f *fakeRoster) enroll(classID string, students ...models.EnrolledStudent) {
	if f.students == nil {
		f.students = make(map[string][]models.EnrolledStudent)
	}
	f.students[classID] = append(f.students[classID], students...)
}

func (f *fakeRoster) unenroll(classID, studentID string) {
	kept := f.students[classID][:0]
	for _, student := range f.students[classID] {
		if student.StudentID != studentID {
			kept = append(kept, student)
		}
	}
	f.students[classID] = kept
}

func (f *fakeRoster) student(classID, studentID string) models.EnrolledStudent {
	for _, student := range f.students[classID] {
		if student.StudentID == studentID {
			return student
		}
	}
	return models.EnrolledStudent{StudentID: studentID}
}

func (f *fakeRoster) ListActiveStudents(ctx context.Context, classID string) ([]models.EnrolledStudent, error) {
	return append([]models.EnrolledStudent(nil), f.students[classID]...), nil
}

func (f *fakeRoster) IsActive(ctx context.Context, classID, studentID string) (bool, error) {
	for _, student := range f.students[classID] {
		if student.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAttendance struct {
	sessions map[string]int
	tallies  map[string]map[string]models.AttendanceTally
}

func (f *fakeAttendance) CountSessions(ctx context.Context, classID string) (int, error) {
	return f.sessions[classID], nil
}

func (f *fakeAttendance) TallyByClass(ctx context.Context, classID string) (map[string]models.AttendanceTally, error) {
	return f.tallies[classID], nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	for i, event := range d.events {
		out[i] = event.Type
	}
	return out
}

type memoryCache struct {
	values      map[string][]byte
	invalidated []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	m.values = nil
	return nil
}

type gradingFixture struct {
	categories *fakeCategories
	items      *fakeItems
	scores     *fakeScores
	finals     *fakeFinals
	roster     *fakeRoster
	attendance *fakeAttendance
}

func newGradingFixture() *gradingFixture {
	items := &fakeItems{}
	roster := &fakeRoster{}
	return &gradingFixture{
		categories: &fakeCategories{items: items},
		items:      items,
		scores:     &fakeScores{items: items},
		finals:     &fakeFinals{roster: roster},
		roster:     roster,
		attendance: &fakeAttendance{sessions: map[string]int{}, tallies: map[string]map[string]models.AttendanceTally{}},
	}
}

func (f *gradingFixture) stores() GradingStores {
	return GradingStores{
		Categories: f.categories,
		Items:      f.items,
		Scores:     f.scores,
		Finals:     f.finals,
		Roster:     f.roster,
		Attendance: f.attendance,
	}
}

func (f *gradingFixture) addCategory(classID, id, name string, weight float64, order int) {
	f.categories.rows = append(f.categories.rows, models.GradeCategory{ID: id, ClassID: classID, Name: name, Weight: weight, DisplayOrder: order})
}

func (f *gradingFixture) addItem(item models.GradeItem) {
	if item.MaxScore == 0 {
		item.MaxScore = 100
	}
	if item.ItemType == "" {
		item.ItemType = models.GradeItemManual
	}
	f.items.rows = append(f.items.rows, item)
}

func (f *gradingFixture) score(itemID, studentID string, pct float64) {
	value := pct
	f.scores.put(models.StudentGradeScore{GradeItemID: itemID, StudentID: studentID, Score: &value, Percentage: &value})
}

func (f *gradingFixture) enroll(classID string, ids ...string) {
	for i, id := range ids {
		f.roster.enroll(classID, models.EnrolledStudent{
			StudentID:   id,
			StudentNo:   fmt.Sprintf("S%03d", len(f.roster.students[classID])+1),
			StudentName: "Student " + id,
			JoinedAt:    time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
}

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func textPtr(v string) *string { return &v }
