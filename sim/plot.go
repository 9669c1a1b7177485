package sim

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ReadEuler loads yaw, pitch and roll against time from an attitude log.
func ReadEuler(rd io.Reader) (yaw, pitch, roll plotter.XYs, err error) {
	r := csv.NewReader(bufio.NewReader(rd))
	rec, err := r.Read()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "sim: reading attitude log header")
	}
	fields := make(map[string]int)
	for i, k := range rec {
		fields[k] = i
	}
	var cols [4]int
	for i, k := range []string{"t", "yaw", "pitch", "roll"} {
		ix, ok := fields[k]
		if !ok {
			return nil, nil, nil, errors.Errorf("sim: attitude log has no %q column", k)
		}
		cols[i] = ix
	}

	var v [4]float64
	for {
		rec, err = r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		ok := true
		for i, c := range cols {
			if v[i], err = strconv.ParseFloat(rec[c], 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		yaw = append(yaw, plotter.XY{X: v[0], Y: v[1]})
		pitch = append(pitch, plotter.XY{X: v[0], Y: v[2]})
		roll = append(roll, plotter.XY{X: v[0], Y: v[3]})
	}
	return yaw, pitch, roll, nil
}

// PlotEuler renders the attitude log at csvPath as a PNG at pngPath.
func PlotEuler(csvPath, pngPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return errors.Wrap(err, "sim: opening attitude log")
	}
	defer f.Close()
	yaw, pitch, roll, err := ReadEuler(f)
	if err != nil {
		return err
	}
	if len(yaw) == 0 {
		return errors.Errorf("sim: %s has no rows to plot", csvPath)
	}

	p := plot.New()
	p.Title.Text = "AHRS Plot"
	p.X.Label.Text = "t, s"
	p.Y.Label.Text = "°"
	if err := plotutil.AddLines(p, "Yaw", yaw, "Pitch", pitch, "Roll", roll); err != nil {
		return errors.Wrap(err, "sim: adding lines")
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, pngPath); err != nil {
		return errors.Wrap(err, "sim: saving plot")
	}
	return nil
}
