package ahrs

import (
	"bufio"
	"bytes"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestAccumulator(t *testing.T) {
	const Decay = 0.995

	var n, m, v float64

	r := rand.New(rand.NewSource(5))

	N := 1 / (1 - Decay) // Go long enough to get good statistics
	a := NewVarianceAccumulator(0, 0, Decay)
	for i := 1; i < int(50*N); i++ {
		n, m, v = a(1 + r.NormFloat64())
	}
	if math.Abs(n-N) > 0.01 {
		log.Printf("Error: effective observations was %6f, should be %6f\n", n, N)
		t.Fail()
	}
	if math.Abs(m-1) > 4/math.Sqrt(N) {
		log.Printf("Error: mean was %6f, should be 1\n", m)
		t.Fail()
	}
	if math.Abs(v-1) > 4/math.Sqrt(N) {
		log.Printf("Error: var was %6f, should be 1\n", v)
		t.Fail()
	}
}

func TestMadgwickConfigGain(t *testing.T) {
	cfg := MadgwickConfig{DeltaT: 0.02, GyroMeanError: 0.1}
	if math.Abs(cfg.Gain()-math.Sqrt(0.75)*0.1) > Small {
		log.Printf("Error: gain was %v\n", cfg.Gain())
		t.Fail()
	}
	cfg.Beta = 0.3
	if cfg.Gain() != 0.3 {
		log.Printf("Error: explicit gain ignored: %v\n", cfg.Gain())
		t.Fail()
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Error: valid config rejected: %v\n", err)
		t.Fail()
	}
}

func TestIsWarning(t *testing.T) {
	if IsWarning(nil) || IsWarning(ErrNonFiniteInput) || IsWarning(errors.New("other")) {
		log.Println("Error: non-warning classified as warning")
		t.Fail()
	}
	if !IsWarning(ErrDegenerateAccel) || !IsWarning(errors.Wrap(ErrDegenerateAccel, "sample 3")) {
		log.Println("Error: degenerate accel not a warning")
		t.Fail()
	}
}

func testRecord() *Record {
	q := AxisAngle(NewVector3(1, 0, 0), 20*Deg)
	return &Record{
		T:     1500 * time.Millisecond,
		Accel: NewVector3(0, 0.34, 0.94),
		Gyro:  NewVector3(0.1, 0, -0.1),
		Q:     q,
		Euler: EulerAngles(q),
	}
}

func TestAHRSWriter(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewAHRSWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Log(testRecord()); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		log.Printf("Error: expected header and one row, got %q\n", lines)
		t.FailNow()
	}
	if lines[0] != strings.Join(LogHeader, ",") {
		log.Printf("Error: header was %q\n", lines[0])
		t.Fail()
	}

	vals := strings.Split(lines[1], ",")
	if len(vals) != len(LogHeader) {
		log.Printf("Error: row had %d columns\n", len(vals))
		t.FailNow()
	}
	ts, _ := strconv.ParseFloat(vals[0], 64)
	roll, _ := strconv.ParseFloat(vals[7], 64)
	az, _ := strconv.ParseFloat(vals[10], 64)
	if ts != 1.5 || notSmall(roll+20) || az != 0.94 {
		log.Printf("Error: row was %q\n", lines[1])
		t.Fail()
	}
}

func TestAHRSLoggerFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ahrs.csv")
	l, err := NewAHRSLogger(fn)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := l.Log(testRecord()); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		log.Printf("Error: second Close failed: %v\n", err)
		t.Fail()
	}

	f, err := os.Open(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var rows int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rows++
	}
	if rows != 11 {
		log.Printf("Error: log had %d lines, should be 11\n", rows)
		t.Fail()
	}

	if _, err := NewAHRSLogger(filepath.Join(fn, "nope", "x.csv")); err == nil {
		log.Println("Error: logger created under a file")
		t.Fail()
	}
}
