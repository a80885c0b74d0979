// Package teamimport reads and writes the team roster CSV used to seed
// competition teams.
package teamimport

import (
	"bufio"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/models"
)

// Roster column headers.
const (
	ColumnTeamNumber = "Team Number"
	ColumnPassword   = "Password"
	ColumnStartTime  = "Start Time"
	ColumnEndTime    = "End Time"
)

var header = []string{ColumnTeamNumber, ColumnPassword, ColumnStartTime, ColumnEndTime}

// ErrMissingColumn is returned when the roster lacks a required header.
var ErrMissingColumn = errors.New("roster is missing a required column")

// Row is one team entry of the roster.
type Row struct {
	TeamNumber string
	Password   string
	StartTime  string
	EndTime    string
}

// Read parses a roster. Columns are matched by header name, times are
// zero-padded to HH:MM and duplicate team numbers keep their first row.
func Read(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnTeamNumber)
		}
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	index := make(map[string]int, len(head))
	for i, name := range head {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index[ColumnTeamNumber]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnTeamNumber)
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster line %d: %w", line, err)
		}

		row := Row{
			TeamNumber: field(record, ColumnTeamNumber),
			Password:   field(record, ColumnPassword),
			StartTime:  field(record, ColumnStartTime),
			EndTime:    field(record, ColumnEndTime),
		}
		if row.TeamNumber == "" {
			return nil, fmt.Errorf("roster line %d: empty %s", line, ColumnTeamNumber)
		}
		if row.StartTime, err = normalizeClock(row.StartTime); err != nil {
			return nil, fmt.Errorf("roster line %d: %s: %w", line, ColumnStartTime, err)
		}
		if row.EndTime, err = normalizeClock(row.EndTime); err != nil {
			return nil, fmt.Errorf("roster line %d: %s: %w", line, ColumnEndTime, err)
		}
		if _, dup := seen[row.TeamNumber]; dup {
			continue
		}
		seen[row.TeamNumber] = struct{}{}
		rows = append(rows, row)
	}

	return rows, nil
}

// normalizeClock zero-pads HH:MM values so that they order as strings.
func normalizeClock(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	parsed, err := time.Parse(models.ScheduleLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid time %q", value)
	}
	return parsed.Format(models.ScheduleLayout), nil
}

// Write emits the roster with its canonical header.
func Write(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.TeamNumber, row.Password, row.StartTime, row.EndTime}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Sort orders rows by start time, then team number. Numeric team numbers
// compare numerically.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StartTime != rows[j].StartTime {
			return rows[i].StartTime < rows[j].StartTime
		}
		return lessTeamNumber(rows[i].TeamNumber, rows[j].TeamNumber)
	})
}

func lessTeamNumber(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}

// Requests converts rows to team payloads.
func Requests(rows []Row) []dto.TeamRequest {
	requests := make([]dto.TeamRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, dto.TeamRequest{
			Name:      row.TeamNumber,
			Password:  row.Password,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
		})
	}
	return requests
}

// PasswordGenerator produces passwords for teams without one. With a word
// list it joins two words and a two-digit number, otherwise it emits random
// alphanumerics.
type PasswordGenerator struct {
	words  []string
	random io.Reader
}

const (
	randomAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
	randomLength   = 10
)

// NewPasswordGenerator builds a generator over words. Blank words are ignored.
func NewPasswordGenerator(words []string) *PasswordGenerator {
	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		if word = strings.TrimSpace(word); word != "" {
			cleaned = append(cleaned, strings.ToLower(word))
		}
	}
	return &PasswordGenerator{words: cleaned, random: rand.Reader}
}

// LoadWords reads one word per line from path.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	return words, scanner.Err()
}

// Generate returns a fresh password.
func (g *PasswordGenerator) Generate() (string, error) {
	if len(g.words) == 0 {
		var b strings.Builder
		for i := 0; i < randomLength; i++ {
			n, err := g.intn(len(randomAlphabet))
			if err != nil {
				return "", err
			}
			b.WriteByte(randomAlphabet[n])
		}
		return b.String(), nil
	}

	first, err := g.intn(len(g.words))
	if err != nil {
		return "", err
	}
	second, err := g.intn(len(g.words))
	if err != nil {
		return "", err
	}
	digits, err := g.intn(100)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%02d", g.words[first], g.words[second], digits), nil
}

// Fill assigns a password to every row that lacks one and reports how many
// were generated.
func (g *PasswordGenerator) Fill(rows []Row) (int, error) {
	generated := 0
	for i := range rows {
		if rows[i].Password != "" {
			continue
		}
		password, err := g.Generate()
		if err != nil {
			return generated, err
		}
		rows[i].Password = password
		generated++
	}
	return generated, nil
}

func (g *PasswordGenerator) intn(n int) (int, error) {
	v, err := rand.Int(g.random, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
