package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

func TestScoreFilterDocument(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	doc := scoreFilterDocument(models.ScoreFilter{ClassID: "class-1", ExamID: "mid", DateFrom: &from})

	assert.Equal(t, bson.M{
		"class_id": "class-1",
		"exam_id":  "mid",
		"date":     bson.M{"$gte": from},
	}, doc)
	assert.Empty(t, scoreFilterDocument(models.ScoreFilter{}))
}

func TestScoresByStudentsDocumentKeepsClass(t *testing.T) {
	doc := scoresByStudentsDocument([]string{"s1", "s2"}, models.ScoreFilter{StudentID: "s9", ClassID: "10A", SubjectID: "math"})

	assert.Equal(t, bson.M{
		"class_id":   "10A",
		"subject_id": "math",
		"student_id": bson.M{"$in": []string{"s1", "s2"}},
	}, doc)
}

func TestAttendanceFilterDocument(t *testing.T) {
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	doc := attendanceFilterDocument(models.AttendanceFilter{StudentID: "s1", ClassID: "10A", DateTo: &to})
	assert.Equal(t, bson.M{
		"student_id": "s1",
		"class_id":   "10A",
		"date":       bson.M{"$lte": to},
	}, doc)

	assert.Empty(t, attendanceFilterDocument(models.AttendanceFilter{}))
}
