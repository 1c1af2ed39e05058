package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
)

const noRecords = "No records"

func render(out io.Writer, snap *snapshot, opts performance.ReportOptions, withSubjects, withAttendance bool) error {
	report := performance.BuildReport(performance.AggregateStudents(snap.Scores, opts.Policy.Scheme), opts)

	title := "Performance report"
	if snap.ClassID != "" {
		title += " - class " + snap.ClassID
	}
	fmt.Fprintf(out, "%s (scheme %s, pass %s%% %s)\n\n", title, report.Scheme, number(report.Statistics.PassThreshold), report.Statistics.PassBoundary)

	if err := renderRankings(out, report, opts.Students); err != nil {
		return err
	}
	if withSubjects && len(report.Subjects) > 0 {
		fmt.Fprintln(out)
		if err := renderSubjects(out, report.Subjects); err != nil {
			return err
		}
	}
	if withAttendance && len(snap.Attendance) > 0 {
		fmt.Fprintln(out)
		rows := performance.AttendanceByStudent(snap.Attendance, performance.AttendanceScope{}, snap.attendanceThresholds())
		if err := renderAttendance(out, rows); err != nil {
			return err
		}
	}
	if len(report.Excluded) > 0 {
		fmt.Fprintf(out, "\n%d score record(s) skipped as invalid\n", len(report.Excluded))
	}
	return nil
}

func renderRankings(out io.Writer, report performance.Report, students map[string]models.StudentProfile) error {
	table := tablewriter.NewTable(out, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{
				PerColumn: []tw.Align{tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignCenter, tw.AlignLeft},
			},
		},
	}))
	table.Header("Rank", "Student", "Name", "Total", "Max", "Percent", "Grade", "Result")
	for _, row := range report.Rankings {
		result := "FAIL"
		if row.Passed {
			result = "PASS"
		}
		if err := table.Append(strconv.Itoa(row.Rank), row.StudentID, row.FullName, number(row.TotalMarks), number(row.MaxMarks), percent(&row.Percentage), string(row.Grade), result); err != nil {
			return err
		}
	}
	for _, id := range report.Unranked {
		if err := table.Append("-", id, students[id].FullName, "", "", noRecords, string(performance.GradeNone), ""); err != nil {
			return err
		}
	}
	stats := report.Statistics
	table.Footer("", "", "Average", "", "", percent(stats.AveragePercentage), "", "Pass "+percent(stats.PassPercentage))
	return table.Render()
}

func renderSubjects(out io.Writer, subjects []performance.SubjectStatistics) error {
	table := tablewriter.NewTable(out)
	table.Header("Subject", "Students", "Average", "Highest", "Lowest", "Pass rate")
	for _, subject := range subjects {
		stats := subject.Statistics
		if err := table.Append(subject.SubjectID, strconv.Itoa(stats.StudentCount), percent(stats.AveragePercentage), percent(stats.MaxPercentage), percent(stats.MinPercentage), percent(stats.PassPercentage)); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderAttendance(out io.Writer, rows []performance.StudentAttendance) error {
	table := tablewriter.NewTable(out)
	table.Header("Student", "Present", "Absent", "Percent", "Standing")
	for _, row := range rows {
		if err := table.Append(row.StudentID, strconv.Itoa(row.Present), strconv.Itoa(row.Absent), percent(row.Percentage), string(row.Standing)); err != nil {
			return err
		}
	}
	return table.Render()
}

func percent(value *float64) string {
	if value == nil {
		return noRecords
	}
	return strconv.FormatFloat(*value, 'f', 2, 64)
}

func number(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
