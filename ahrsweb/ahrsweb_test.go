package ahrsweb

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
)

func startRoom(t *testing.T) (*Room, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRoom()
	go r.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ahrsweb", r)
	mux.Handle("/latest", r.LatestHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return r, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ahrsweb"
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testRecord() *ahrs.Record {
	q := ahrs.AxisAngle(ahrs.NewVector3(1, 0, 0), 20*ahrs.Deg)
	return &ahrs.Record{
		T:     2 * time.Second,
		Accel: ahrs.NewVector3(0, 0.34, 0.94),
		Gyro:  ahrs.NewVector3(0, 0, 0.1),
		Q:     q,
		Euler: ahrs.EulerAngles(q),
	}
}

func TestNewAHRSData(t *testing.T) {
	rec := testRecord()
	d := NewAHRSData(rec)
	assert.Equal(t, 2.0, d.T)
	assert.Equal(t, rec.Q.W, d.QW)
	assert.Equal(t, 0.94, d.A3)
	assert.Equal(t, 0.1, d.B3)
	assert.InDelta(t, -20, d.Roll, 1e-9)
	assert.Empty(t, d.Warning)

	rec.Err = ahrs.ErrDegenerateAccel
	d.update(rec)
	assert.Equal(t, ahrs.ErrDegenerateAccel.Error(), d.Warning)
}

func TestLatestBeforeFirstMessage(t *testing.T) {
	_, srv := startRoom(t)
	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestListenerToSubscriber(t *testing.T) {
	r, srv := startRoom(t)
	sub := dial(t, srv)

	l, err := NewListener(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	defer l.Close()

	require.Eventually(t, func() bool { return r.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, l.Send(testRecord()))

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := sub.ReadMessage()
	require.NoError(t, err)

	var got AHRSData
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, *NewAHRSData(testRecord()), got)

	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, string(msg), string(body))
}

func TestListenerSendsRejectedSample(t *testing.T) {
	r, srv := startRoom(t)
	sub := dial(t, srv)

	l, err := NewListener(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	defer l.Close()
	require.Eventually(t, func() bool { return r.Clients() == 2 }, time.Second, 5*time.Millisecond)

	f, err := ahrs.NewMadgwick(ahrs.DefaultMadgwickConfig())
	require.NoError(t, err)
	accel, gyro := ahrs.NewVector3(math.NaN(), 0, 1), ahrs.NewVector3(0, math.Inf(1), 0)
	q, uerr := f.Update(accel, gyro)
	require.Error(t, uerr)
	rec := &ahrs.Record{T: time.Second, Accel: accel, Gyro: gyro, Q: q, Euler: ahrs.EulerAngles(q), Err: uerr}
	require.NoError(t, l.Send(rec))

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := sub.ReadMessage()
	require.NoError(t, err)

	var got AHRSData
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, uerr.Error(), got.Warning)
	assert.Equal(t, 0.0, got.A1)
	assert.Equal(t, 1.0, got.A3)
	assert.Equal(t, 0.0, got.B2)
	assert.Equal(t, 1.0, got.QW)
}

func TestPublishSkipsNoOne(t *testing.T) {
	r, srv := startRoom(t)
	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return r.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.True(t, r.Publish([]byte(`{"T":1}`)))
	for _, c := range []*websocket.Conn{a, b} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := c.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"T":1}`, string(msg))
	}
	assert.JSONEq(t, `{"T":1}`, string(r.Latest()))
}

func TestRoomLeaveAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRoom()
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return r.Clients() == 1 }, time.Second, 5*time.Millisecond)
	c.Close()
	require.Eventually(t, func() bool { return r.Clients() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("room did not stop")
	}
	assert.False(t, r.Publish([]byte("late")))
}
