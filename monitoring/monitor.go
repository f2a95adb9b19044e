// Package monitoring turns a running simulation into a web server that can be
// inspected and paused from a browser.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/pktmux/monitoring/web"
	"github.com/sarchlab/pktmux/recording"
)

// Controller is the part of the tick loop the monitor drives.
type Controller interface {
	Pause()
	Continue()
	IsPaused() bool
	CurrentTick() uint64
}

// Component is anything the monitor can list and serialize.
type Component interface {
	Name() string
}

// Buffer is a queue whose level the monitor reports.
type Buffer interface {
	Name() string
	Size() int
	Capacity() int
}

// LatencySource provides the latency statistics of the run.
type LatencySource interface {
	Summary() recording.Summary
}

type rounder interface {
	Round() uint64
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	loop        Controller
	latency     LatencySource
	components  []Component
	buffers     []Buffer
	portNumber  int
	openBrowser bool

	profileDuration time.Duration

	progressLock sync.Mutex
	progress     []*TickProgress

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithProfileDuration sets how long the profile endpoint samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterLoop registers the loop that drives the simulation.
func (m *Monitor) RegisterLoop(l Controller) {
	m.loop = l
}

// RegisterLatencySource sets where the latency endpoint reads from.
func (m *Monitor) RegisterLatencySource(s LatencySource) {
	m.latency = s
}

// RegisterComponent register a component to be monitored. If the component
// has a Buffers method, the buffers it returns are monitored too.
func (m *Monitor) RegisterComponent(c Component) {
	m.components = append(m.components, c)

	m.registerBuffers(c)
}

// RegisterBuffer adds a buffer to the hang detector.
func (m *Monitor) RegisterBuffer(b Buffer) {
	m.buffers = append(m.buffers, b)
}

func (m *Monitor) registerBuffers(c Component) {
	method := reflect.ValueOf(c).MethodByName("Buffers")
	if !method.IsValid() || method.Type().NumIn() != 0 ||
		method.Type().NumOut() != 1 {
		return
	}

	out := method.Call(nil)[0]
	if out.Kind() != reflect.Slice {
		return
	}

	for i := 0; i < out.Len(); i++ {
		if b, ok := out.Index(i).Interface().(Buffer); ok {
			m.buffers = append(m.buffers, b)
		}
	}
}

// TrackTicks starts reporting the progress of a run of total ticks. A total
// of 0 means the run has no tick limit.
func (m *Monitor) TrackTicks(name string, total uint64) *TickProgress {
	p := &TickProgress{
		id:        xid.New().String(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressLock.Lock()
	defer m.progressLock.Unlock()

	m.progress = append(m.progress, p)

	return p
}

// StopTracking removes a tracker from the progress list.
func (m *Monitor) StopTracking(p *TickProgress) {
	m.progressLock.Lock()
	defer m.progressLock.Unlock()

	kept := make([]*TickProgress, 0, len(m.progress))
	for _, q := range m.progress {
		if q != p {
			kept = append(kept, q)
		}
	}

	m.progress = kept
}

// Router returns the handler that serves the API and the web page.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fs := web.Assets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/pause", m.pauseLoop)
	r.HandleFunc("/api/continue", m.continueLoop)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/hangdetector/buffers", m.hangDetectorBuffers)
	r.HandleFunc("/api/progress", m.listProgress)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/latency", m.reportLatency)
	r.HandleFunc("/debug/pprof/", httppprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	r.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", httppprof.Trace)
	r.PathPrefix("/debug/pprof/").HandlerFunc(httppprof.Index)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns the address it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("monitoring: listen on %s: %w", actualPort, err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("warning: monitoring server stopped: %v", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("warning: cannot open browser: %v", err)
		}
	}

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) loopOr503(w http.ResponseWriter) bool {
	if m.loop == nil {
		http.Error(w, "no loop registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) pauseLoop(w http.ResponseWriter, _ *http.Request) {
	if !m.loopOr503(w) {
		return
	}

	m.loop.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueLoop(w http.ResponseWriter, _ *http.Request) {
	if !m.loopOr503(w) {
		return
	}

	m.loop.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

type nowRsp struct {
	Tick   uint64 `json:"tick"`
	Round  uint64 `json:"round"`
	Paused bool   `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.loopOr503(w) {
		return
	}

	rsp := nowRsp{
		Tick:   m.loop.CurrentTick(),
		Paused: m.loop.IsPaused(),
	}

	for _, c := range m.components {
		if r, ok := c.(rounder); ok {
			rsp.Round = r.Round()
			break
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, len(m.components))
	for i, c := range m.components {
		names[i] = c.Name()
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fields := strings.Split(req.FieldName, ".")

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(fields)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type bufferRsp struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func (m *Monitor) hangDetectorBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := m.buffersParseParams(r)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	sortedBuffers := m.sortAndSelectBuffers(sortMethod, limit, offset)

	rsp := make([]bufferRsp, len(sortedBuffers))
	for i, b := range sortedBuffers {
		rsp[i] = bufferRsp{
			Buffer: b.Name(),
			Level:  b.Size(),
			Cap:    b.Capacity(),
		}
	}

	writeJSON(w, rsp)
}

func (*Monitor) buffersParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}
	if sortMethod != "level" && sortMethod != "percent" {
		errStr := fmt.Sprintf(
			"Invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
		return "", 0, 0, errors.New(errStr)
	}

	limitNumber, err := intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offsetNumber, err := intParam(r, "offset")
	if err != nil {
		return sortMethod, limitNumber, 0, err
	}

	return sortMethod, limitNumber, offsetNumber, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return n, nil
}

// bufferPercent is 0 for unbounded buffers.
func bufferPercent(b Buffer) float64 {
	if b.Capacity() == 0 {
		return 0
	}

	return float64(b.Size()) / float64(b.Capacity())
}

// sortAndSelectBuffers returns at most limit buffers starting at offset. A
// limit of 0 means no limit.
func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []Buffer {
	sortedBuffers := make([]Buffer, len(m.buffers))
	copy(sortedBuffers, m.buffers)

	byLevel := func(i, j int) (less, decided bool) {
		sizeI := sortedBuffers[i].Size()
		sizeJ := sortedBuffers[j].Size()
		return sizeI > sizeJ, sizeI != sizeJ
	}

	byPercent := func(i, j int) (less, decided bool) {
		percentI := bufferPercent(sortedBuffers[i])
		percentJ := bufferPercent(sortedBuffers[j])
		return percentI > percentJ, percentI != percentJ
	}

	first, second := byPercent, byLevel
	if sortMethod == "level" {
		first, second = byLevel, byPercent
	}

	sort.SliceStable(sortedBuffers, func(i, j int) bool {
		if less, decided := first(i, j); decided {
			return less
		}

		less, _ := second(i, j)

		return less
	})

	if offset > len(sortedBuffers) {
		offset = len(sortedBuffers)
	}

	end := len(sortedBuffers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sortedBuffers[offset:end]
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) Component {
	var component Component
	for _, c := range m.components {
		if c.Name() == name {
			component = c
		}
	}

	if component == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)
	}

	return component
}

func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()

	m.progressLock.Lock()
	rsp := make([]progressRsp, len(m.progress))
	for i, p := range m.progress {
		rsp[i] = p.report(now)
	}
	m.progressLock.Unlock()

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := process.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memorySize, err := process.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func (m *Monitor) reportLatency(w http.ResponseWriter, _ *http.Request) {
	if m.latency == nil {
		http.Error(w, "latency is not tracked", http.StatusNotFound)
		return
	}

	writeJSON(w, m.latency.Summary())
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
