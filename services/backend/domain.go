package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Domain records as the backend reports them. The portal renders these
// as-is; IDs, statistics and derived fields are backend-owned.

type Student struct {
	ID         string `json:"_id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	RollNumber string `json:"rollNumber"`
	CourseID   string `json:"courseId"`
}

type NewStudent struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	RollNumber string `json:"rollNumber" validate:"required"`
	CourseID   string `json:"courseId" validate:"required"`
}

type Course struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Instructor string `json:"instructor"`
	Credits    int    `json:"credits"`
}

type NewCourse struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required"`
	Instructor string `json:"instructor"`
	Credits    int    `json:"credits" validate:"gte=0"`
}

type AttendanceEntry struct {
	StudentID string `json:"studentId" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
}

type AttendanceSheet struct {
	CourseID string            `json:"courseId" validate:"required"`
	Date     string            `json:"date" validate:"required"` // YYYY-MM-DD
	Records  []AttendanceEntry `json:"records" validate:"required,dive"`
}

type AttendanceRecord struct {
	ID        string `json:"_id"`
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

// Counts feed the dashboard cards.
type Counts struct {
	Students int `json:"students"`
	Courses  int `json:"courses"`
	Enrolled int `json:"enrolled"`
}

type countResponse struct {
	Count int `json:"count"`
}

// Students

func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	var res []Student
	err := c.do(ctx, http.MethodGet, "/students", nil, &res)
	return res, err
}

func (c *Client) ListStudentsByCourse(ctx context.Context, courseID string) ([]Student, error) {
	var res []Student
	err := c.do(ctx, http.MethodGet, "/students/course/"+url.PathEscape(courseID), nil, &res)
	return res, err
}

func (c *Client) RegisterStudent(ctx context.Context, ns NewStudent) (Student, error) {
	var res Student
	err := c.do(ctx, http.MethodPost, "/students/register", ns, &res)
	return res, err
}

func (c *Client) UpdateStudent(ctx context.Context, id string, ns NewStudent) (Student, error) {
	var res Student
	err := c.do(ctx, http.MethodPut, "/students/"+url.PathEscape(id), ns, &res)
	return res, err
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/students/"+url.PathEscape(id), nil, nil)
}

// Courses

func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var res []Course
	err := c.do(ctx, http.MethodGet, "/courses", nil, &res)
	return res, err
}

func (c *Client) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	var res Course
	err := c.do(ctx, http.MethodPost, "/courses", nc, &res)
	return res, err
}

func (c *Client) UpdateCourse(ctx context.Context, id string, nc NewCourse) (Course, error) {
	var res Course
	err := c.do(ctx, http.MethodPut, "/courses/"+url.PathEscape(id), nc, &res)
	return res, err
}

func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/courses/"+url.PathEscape(id), nil, nil)
}

// Attendance

func (c *Client) MarkAttendance(ctx context.Context, sheet AttendanceSheet) error {
	return c.do(ctx, http.MethodPost, "/attendance", sheet, nil)
}

func (c *Client) AttendanceByCourse(ctx context.Context, courseID, date string) ([]AttendanceRecord, error) {
	path := "/attendance/course/" + url.PathEscape(courseID)
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var res []AttendanceRecord
	err := c.do(ctx, http.MethodGet, path, nil, &res)
	return res, err
}

func (c *Client) AttendanceByRoll(ctx context.Context, rollNumber string) ([]AttendanceRecord, error) {
	var res []AttendanceRecord
	err := c.do(ctx, http.MethodGet, "/attendance/roll/"+url.PathEscape(rollNumber), nil, &res)
	return res, err
}

// Dashboard

// GetCounts gathers the dashboard numbers; each count is its own backend
// call, as the API exposes them.
func (c *Client) GetCounts(ctx context.Context) (Counts, error) {
	var counts Counts
	var res countResponse

	if err := c.do(ctx, http.MethodGet, "/students/count", nil, &res); err != nil {
		return Counts{}, err
	}
	counts.Students = res.Count

	if err := c.do(ctx, http.MethodGet, "/courses/count", nil, &res); err != nil {
		return Counts{}, err
	}
	counts.Courses = res.Count

	if err := c.do(ctx, http.MethodGet, "/students/enrolled?count=true", nil, &res); err != nil {
		return Counts{}, err
	}
	counts.Enrolled = res.Count

	return counts, nil
}
