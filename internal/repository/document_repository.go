package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

// Collection names in the document store.
const (
	ScoresCollection     = "scores"
	AttendanceCollection = "attendance"
	StudentsCollection   = "students"
)

// DocumentStore groups the MongoDB backed record repositories. Each exposes
// the same methods as its PostgreSQL counterpart.
type DocumentStore struct {
	Scores     *DocumentScoreRepository
	Attendance *DocumentAttendanceRepository
	Students   *DocumentStudentRepository
}

// NewDocumentStore binds the repositories to a database.
func NewDocumentStore(db *mongo.Database) *DocumentStore {
	return &DocumentStore{
		Scores:     &DocumentScoreRepository{collection: db.Collection(ScoresCollection)},
		Attendance: &DocumentAttendanceRepository{collection: db.Collection(AttendanceCollection)},
		Students:   &DocumentStudentRepository{collection: db.Collection(StudentsCollection)},
	}
}

// DocumentScoreRepository reads score documents.
type DocumentScoreRepository struct {
	collection *mongo.Collection
}

// DocumentAttendanceRepository reads attendance documents.
type DocumentAttendanceRepository struct {
	collection *mongo.Collection
}

// DocumentStudentRepository reads student profile documents.
type DocumentStudentRepository struct {
	collection *mongo.Collection
}

// List returns score documents in scope.
func (r *DocumentScoreRepository) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	var records []models.ScoreRecord
	if err := findAll(ctx, r.collection, scoreFilterDocument(filter), &records); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return records, nil
}

// ListByStudents returns score documents of the given students.
func (r *DocumentScoreRepository) ListByStudents(ctx context.Context, studentIDs []string, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var records []models.ScoreRecord
	if err := findAll(ctx, r.collection, scoresByStudentsDocument(studentIDs, filter), &records); err != nil {
		return nil, fmt.Errorf("list scores by students: %w", err)
	}
	return records, nil
}

// List returns attendance documents in scope.
func (r *DocumentAttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := findAll(ctx, r.collection, attendanceFilterDocument(filter), &records); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListByClass returns the student profiles of a class ordered by roll number.
func (r *DocumentStudentRepository) ListByClass(ctx context.Context, classID string) ([]models.StudentProfile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "roll_number", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"class_id": classID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	var students []models.StudentProfile
	if err := cursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return students, nil
}

// FindByID returns one student profile. ErrNoDocuments is passed through.
func (r *DocumentStudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	var student models.StudentProfile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&student); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

func findAll(ctx context.Context, collection *mongo.Collection, filter bson.M, dest interface{}) error {
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return err
	}
	return cursor.All(ctx, dest)
}

func scoresByStudentsDocument(studentIDs []string, filter models.ScoreFilter) bson.M {
	filter.StudentID = ""
	doc := scoreFilterDocument(filter)
	doc["student_id"] = bson.M{"$in": studentIDs}
	return doc
}

func scoreFilterDocument(filter models.ScoreFilter) bson.M {
	doc := bson.M{}
	if filter.StudentID != "" {
		doc["student_id"] = filter.StudentID
	}
	if filter.ClassID != "" {
		doc["class_id"] = filter.ClassID
	}
	if filter.SubjectID != "" {
		doc["subject_id"] = filter.SubjectID
	}
	if filter.ExamID != "" {
		doc["exam_id"] = filter.ExamID
	}
	if dates := dateRange(filter.DateFrom, filter.DateTo); dates != nil {
		doc["date"] = dates
	}
	return doc
}

func attendanceFilterDocument(filter models.AttendanceFilter) bson.M {
	doc := bson.M{}
	if filter.StudentID != "" {
		doc["student_id"] = filter.StudentID
	}
	if filter.ClassID != "" {
		doc["class_id"] = filter.ClassID
	}
	if dates := dateRange(filter.DateFrom, filter.DateTo); dates != nil {
		doc["date"] = dates
	}
	return doc
}

func dateRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	bounds := bson.M{}
	if from != nil {
		bounds["$gte"] = *from
	}
	if to != nil {
		bounds["$lte"] = *to
	}
	return bounds
}
