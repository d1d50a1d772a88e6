package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// Console reads prompts from in and writes coloured messages to out.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

var std = NewConsole(os.Stdin, os.Stdout)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) { std.Warning(message) }

// PrintError displays an error message with consistent formatting
func PrintError(message string) { std.Error(message) }

func (c *Console) Warning(message string) {
	fmt.Fprintf(c.out, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(c.out, "%s%s%s\n", ColorYellow, message, ColorReset)
}

func (c *Console) Error(message string) {
	fmt.Fprintf(c.out, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

func (c *Console) Success(message string) {
	fmt.Fprintf(c.out, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

func (c *Console) Info(message string) {
	fmt.Fprintf(c.out, "%s%s%s", ColorBlue, message, ColorReset)
}

func (c *Console) Listing(message string) {
	fmt.Fprintf(c.out, "%s%s%s\n", ColorGreen, message, ColorReset)
}

// ReadString reads a trimmed line. io.EOF is returned once input is
// exhausted and the line is empty.
func (c *Console) ReadString(prompt string) (string, error) {
	c.Info(prompt)
	input, err := c.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if err == io.EOF && input != "" {
		err = nil
	}
	return input, err
}

// ReadStringDefault returns def for an empty answer.
func (c *Console) ReadStringDefault(prompt, def string) (string, error) {
	input, err := c.ReadString(fmt.Sprintf("%s[%s] ", prompt, def))
	if err != nil && err != io.EOF {
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

// ReadInt reads an integer from stdin with validation
func (c *Console) ReadInt(prompt string, min, max int) (int, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadFloat reads a number in [min, max]; an empty answer keeps def.
func (c *Console) ReadFloat(prompt string, min, max, def float64) (float64, error) {
	input, err := c.ReadStringDefault(prompt, strconv.FormatFloat(def, 'f', -1, 64))
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %g and %g", min, max)
	}
	return value, nil
}

// ReadBool accepts y/yes/n/no; an empty answer keeps def.
func (c *Console) ReadBool(prompt string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	input, err := c.ReadString(fmt.Sprintf("%s(%s) ", prompt, hint))
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(input) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("please answer yes or no, got %q", input)
}

// Choose lists options and returns the index picked; an empty answer keeps
// def.
func (c *Console) Choose(title string, options []string, def int) (int, error) {
	c.Listing("\n" + title + ":")
	for i, opt := range options {
		c.Listing(fmt.Sprintf("%d. %s", i+1, opt))
	}
	input, err := c.ReadStringDefault("Enter your choice: ", strconv.Itoa(def+1))
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(input)
	if err != nil || value < 1 || value > len(options) {
		return 0, fmt.Errorf("invalid choice %q, value must be between 1 and %d", input, len(options))
	}
	return value - 1, nil
}

// ReadDate reads a date from stdin with validation
func (c *Console) ReadDate(prompt string) (time.Time, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return time.Time{}, err
	}
	if input == "today" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(time.DateOnly, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return date, nil
}

// ReadDateRange reads end date and number of days to calculate start date
func (c *Console) ReadDateRange() (time.Time, time.Time, error) {
	endDate, err := c.ReadDate("Enter the end date (YYYY-MM-DD): ")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	days, err := c.ReadInt("Enter number of days: ", 1, 3650)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return endDate.AddDate(0, 0, -days), endDate, nil
}

// ParsePercentiles parses a comma separated list such as "10, 90".
func ParsePercentiles(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentile %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatPercentiles(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
