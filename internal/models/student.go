package models

// StudentProfile carries the directory fields shown next to a student's results.
type StudentProfile struct {
	StudentID  string `db:"id" bson:"_id" json:"student_id"`
	FullName   string `db:"full_name" bson:"full_name" json:"full_name"`
	RollNumber string `db:"roll_number" bson:"roll_number" json:"roll_number"`
	ClassID    string `db:"class_id" bson:"class_id" json:"class_id"`
}
