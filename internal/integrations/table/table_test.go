package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cargroup/internal/opt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studentsCSV = `student_id, license ,gender,grade,notes
 s1 ,1,F,9,x
s2,false,M,10,
s3,yes, F ,9,
s4,,M,10,
s5,0,M,11,
`

func TestStudentsCleansAndDrops(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(studentsCSV), "students")
	require.NoError(t, err)
	students, err := Students(tbl)
	require.NoError(t, err)
	require.Len(t, students, 4, "s4 has no license value")
	assert.Equal(t, opt.Student{ID: "s1", HasLicense: true, Gender: "F", Grade: "9"}, students[0])
	assert.False(t, students[1].HasLicense)
	assert.True(t, students[2].HasLicense)
	assert.Equal(t, "F", students[2].Gender)
	assert.Equal(t, "s5", students[3].ID)
}

func TestStudentsMissingColumns(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("student_id,gender\ns1,F\n"), "students")
	require.NoError(t, err)
	_, err = Students(tbl)
	require.ErrorIs(t, err, opt.ErrSchema)
	assert.Contains(t, err.Error(), "license, grade")
}

func TestStudentsBadFlag(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("student_id,license,gender,grade\ns1,maybe,F,9\n"), "students")
	require.NoError(t, err)
	_, err = Students(tbl)
	assert.ErrorIs(t, err, opt.ErrSchema)
}

func TestDecodeErrorsNameInputRow(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("student_id,license,gender,grade\ns1,,F,9\ns2,maybe,M,9\n"), "students")
	require.NoError(t, err)
	_, err = Students(tbl)
	require.ErrorIs(t, err, opt.ErrSchema)
	assert.Contains(t, err.Error(), "row 2:")

	tbl, err = ReadCSV(strings.NewReader("car_id,capacity\nc1,\nc2,3\nc3,lots\n"), "cars")
	require.NoError(t, err)
	_, err = Cars(tbl)
	require.ErrorIs(t, err, opt.ErrSchema)
	assert.Contains(t, err.Error(), "row 3:")
}

func TestStudentsPinnedCar(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("student_id,license,gender,grade,car_id\ns1,1,F,9,c2\ns2,1,M,9,\n"), "students")
	require.NoError(t, err)
	students, err := Students(tbl)
	require.NoError(t, err)
	assert.Equal(t, "c2", students[0].CarID)
	assert.Empty(t, students[1].CarID)
}

func TestCars(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("car_id,capacity\nc1,4\nc2, 2\nc3,\n"), "cars")
	require.NoError(t, err)
	cars, err := Cars(tbl)
	require.NoError(t, err)
	assert.Equal(t, []opt.Car{{ID: "c1", Capacity: 4}, {ID: "c2", Capacity: 2}}, cars)

	tbl, err = ReadCSV(strings.NewReader("car_id,capacity\nc1,four\n"), "cars")
	require.NoError(t, err)
	_, err = Cars(tbl)
	assert.ErrorIs(t, err, opt.ErrSchema)
}

func TestCarsRejectFractionalCapacity(t *testing.T) {
	_, err := Cars(FromRecords("cars", []map[string]any{{"car_id": "c1", "capacity": 4.7}}))
	require.ErrorIs(t, err, opt.ErrSchema)
	assert.Contains(t, err.Error(), "not a whole number")

	_, err = Cars(FromRecords("cars", []map[string]any{{"car_id": "c1", "capacity": "4.7"}}))
	assert.ErrorIs(t, err, opt.ErrSchema)

	cars, err := Cars(FromRecords("cars", []map[string]any{{"car_id": "c1", "capacity": float64(4)}}))
	require.NoError(t, err)
	assert.Equal(t, []opt.Car{{ID: "c1", Capacity: 4}}, cars)
}

func TestEmptyTables(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "cars")
	assert.ErrorIs(t, err, opt.ErrSchema)

	tbl, err := ReadCSV(strings.NewReader("car_id,capacity\n"), "cars")
	require.NoError(t, err)
	_, err = Cars(tbl)
	assert.ErrorIs(t, err, opt.ErrSchema)
}

func TestFromRecords(t *testing.T) {
	tbl := FromRecords("students", []map[string]any{
		{"student_id": " a ", "license": true, "gender": "F", "grade": float64(10)},
		{"student_id": "b", "license": float64(0), "gender": "M", "grade": "11"},
		{"student_id": "c", "gender": "M", "grade": "11"},
	})
	assert.Equal(t, []string{"gender", "grade", "license", "student_id"}, tbl.Header)
	students, err := Students(tbl)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, opt.Student{ID: "a", HasLicense: true, Gender: "F", Grade: "10"}, students[0])
	assert.False(t, students[1].HasLicense)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cars.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffcar_id,capacity\nc1,3\n"), 0o600))
	tbl, err := ReadFile(path, "cars")
	require.NoError(t, err)
	assert.Equal(t, []string{"car_id", "capacity"}, tbl.Header)
	_, err = ReadFile(filepath.Join(t.TempDir(), "nope.csv"), "cars")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []opt.Row{
		{StudentID: "s1", CarID: "c1", Occupancy: 2, Capacity: 4},
		{StudentID: "s2", CarID: "c1", Occupancy: 2, Capacity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "student_id,car_id,occupancy,capacity\ns1,c1,2,4\ns2,c1,2,4\n", buf.String())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_students__1_.csv", SanitizeFilename("my students (1).csv"))
	assert.Equal(t, "solution.csv", SanitizeFilename("solution.csv"))
	assert.Equal(t, ".._.._etc_passwd", SanitizeFilename("../../etc/passwd"))
}
