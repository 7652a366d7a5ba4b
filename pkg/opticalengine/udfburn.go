package opticalengine

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef int (*burn_init_fn)(void);
typedef int (*burn_burn_to_disc_fn)(const char *dev, const char *vol_id, const char *staged_tree_json);
typedef void (*progress_cb)(double progress);
typedef void (*burn_register_progress_callback_fn)(progress_cb cb);
typedef int (*burn_get_last_errors_fn)(char **out, int max);
typedef void (*burn_show_verbose_information_fn)(int on);
typedef void (*burn_redirect_output_fn)(const char *path);

static void *udf_dlopen(const char *name) { return dlopen(name, RTLD_NOW); }
static void *udf_dlsym(void *handle, const char *name) { return dlsym(handle, name); }
static int udf_dlclose(void *handle) { return dlclose(handle); }

extern void goUDFProgress(double progress);

static int udf_call_init(burn_init_fn fn) { return fn(); }
static int udf_call_burn(burn_burn_to_disc_fn fn, const char *dev, const char *vol, const char *tree) {
	return fn(dev, vol, tree);
}
static void udf_register_callback(burn_register_progress_callback_fn fn) {
	fn(goUDFProgress);
}
static int udf_call_get_last_errors(burn_get_last_errors_fn fn, char **out, int max) {
	return fn(out, max);
}
static void udf_call_show_verbose(burn_show_verbose_information_fn fn, int on) {
	fn(on);
}
static void udf_call_redirect_output(burn_redirect_output_fn fn, const char *path) {
	fn(path);
}
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"k8s.io/klog/v2"
)

// UDFLibrary is the surface the engine needs from the dynamically
// loaded "udfburn" shared library: init, burn, progress callback
// registration, and the error/verbose/redirect controls.
type UDFLibrary interface {
	Init() error
	BurnToDisc(devicePath, volumeID string, files []FileMapping, onProgress func(progress float64)) error
	LastErrorMessages() []string
	ShowVerboseInformation(on bool)
	RedirectOutput(path string) error
	Close() error
}

const udfLibraryName = "udfburn"

var (
	udfProgressMu       sync.Mutex
	udfProgressCallback func(float64)
)

//export goUDFProgress
func goUDFProgress(progress C.double) {
	udfProgressMu.Lock()
	cb := udfProgressCallback
	udfProgressMu.Unlock()
	if cb != nil {
		cb(float64(progress))
	}
}

// dlUDFLibrary is the production UDFLibrary, resolving every required
// symbol eagerly at load time so a missing symbol fails fast instead
// of at first use.
type dlUDFLibrary struct {
	handle unsafe.Pointer

	init                     C.burn_init_fn
	burnToDisc               C.burn_burn_to_disc_fn
	registerProgressCallback C.burn_register_progress_callback_fn
	getLastErrors            C.burn_get_last_errors_fn
	showVerboseInformation   C.burn_show_verbose_information_fn
	redirectOutput           C.burn_redirect_output_fn
}

// LoadUDFLibrary dlopen()s libudfburn.so (or the platform-default
// shared-library name resolution for "udfburn") and resolves every
// symbol the burn engine needs. An error here means the engine must
// be marked unusable for UDF 1.02 burns; the ISO9660 path is
// unaffected.
func LoadUDFLibrary() (UDFLibrary, error) {
	name := C.CString("lib" + udfLibraryName + ".so")
	defer C.free(unsafe.Pointer(name))

	handle := C.udf_dlopen(name)
	if handle == nil {
		return nil, fmt.Errorf("opticalengine: dlopen %s failed", udfLibraryName)
	}

	lib := &dlUDFLibrary{handle: handle}
	symbols := map[string]*unsafe.Pointer{
		"burn_init":                         (*unsafe.Pointer)(unsafe.Pointer(&lib.init)),
		"burn_burn_to_disc":                 (*unsafe.Pointer)(unsafe.Pointer(&lib.burnToDisc)),
		"burn_register_progress_callback":   (*unsafe.Pointer)(unsafe.Pointer(&lib.registerProgressCallback)),
		"burn_get_last_errors":              (*unsafe.Pointer)(unsafe.Pointer(&lib.getLastErrors)),
		"burn_show_verbose_information":      (*unsafe.Pointer)(unsafe.Pointer(&lib.showVerboseInformation)),
		"burn_redirect_output":              (*unsafe.Pointer)(unsafe.Pointer(&lib.redirectOutput)),
	}
	for symName, slot := range symbols {
		cName := C.CString(symName)
		sym := C.udf_dlsym(handle, cName)
		C.free(unsafe.Pointer(cName))
		if sym == nil {
			C.udf_dlclose(handle)
			return nil, fmt.Errorf("opticalengine: udfburn missing symbol %s", symName)
		}
		*slot = sym
	}

	return lib, nil
}

func (l *dlUDFLibrary) Init() error {
	if rc := C.udf_call_init(l.init); rc != 0 {
		return fmt.Errorf("opticalengine: burn_init failed: rc=%d", int(rc))
	}
	return nil
}

// stagedTree is the JSON shape passed across the FFI boundary as the
// staged file-tree mapping; the native side decodes it to build the
// UDF directory structure.
type stagedTree struct {
	Files []FileMapping `json:"files"`
}

func (l *dlUDFLibrary) BurnToDisc(devicePath, volumeID string, files []FileMapping, onProgress func(progress float64)) error {
	treeJSON, err := json.Marshal(stagedTree{Files: files})
	if err != nil {
		return fmt.Errorf("opticalengine: marshal staged tree: %w", err)
	}

	udfProgressMu.Lock()
	udfProgressCallback = onProgress
	udfProgressMu.Unlock()
	defer func() {
		udfProgressMu.Lock()
		udfProgressCallback = nil
		udfProgressMu.Unlock()
	}()
	C.udf_register_callback(l.registerProgressCallback)

	cDev := C.CString(devicePath)
	cVol := C.CString(volumeID)
	cTree := C.CString(string(treeJSON))
	defer C.free(unsafe.Pointer(cDev))
	defer C.free(unsafe.Pointer(cVol))
	defer C.free(unsafe.Pointer(cTree))

	rc := C.udf_call_burn(l.burnToDisc, cDev, cVol, cTree)
	if rc != 0 {
		msgs := l.collectErrors()
		msgs = append(msgs, l.scanLastLogFile()...)
		return fmt.Errorf("opticalengine: burn_burn_to_disc failed (rc=%d): %s", int(rc), strings.Join(msgs, "; "))
	}
	return nil
}

func (l *dlUDFLibrary) collectErrors() []string {
	const maxErrors = 64
	buf := make([]*C.char, maxErrors)
	n := C.udf_call_get_last_errors(l.getLastErrors, &buf[0], C.int(maxErrors))
	out := make([]string, 0, int(n))
	for i := 0; i < int(n); i++ {
		out = append(out, C.GoString(buf[i]))
	}
	return out
}

var logLinePrefix = regexp.MustCompile(`^(Warning|Error)`)
var cacheDevPrefix = regexp.MustCompile(`/home/[^/]+/\.cache/deepin/discburn/_dev_sr[0-9]*/`)

// scanLastLogFile reads the most recently modified log under
// $HOME/.cache/deepin/discburn/uburn/<dir>/log, keeping only
// Warning/Error lines and stripping the cache device-path prefix.
func (l *dlUDFLibrary) scanLastLogFile() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	root := filepath.Join(home, ".cache", "deepin", "discburn", "uburn")
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	type dirInfo struct {
		name    string
		modTime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{name: e.Name(), modTime: fi.ModTime().UnixNano()})
	}
	if len(dirs) == 0 {
		return nil
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime > dirs[j].modTime })

	logPath := filepath.Join(root, dirs[0].name, "log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		klog.Warningf("opticalengine: reading udfburn log %s: %v", logPath, err)
		return nil
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if !logLinePrefix.MatchString(line) {
			continue
		}
		out = append(out, cacheDevPrefix.ReplaceAllString(line, ""))
	}
	return out
}

// LastErrorMessages re-collects the native error vector plus the
// scanned log lines, for callers that want it outside BurnToDisc's
// own failure path.
func (l *dlUDFLibrary) LastErrorMessages() []string {
	msgs := l.collectErrors()
	return append(msgs, l.scanLastLogFile()...)
}

func (l *dlUDFLibrary) ShowVerboseInformation(on bool) {
	v := C.int(0)
	if on {
		v = 1
	}
	C.udf_call_show_verbose(l.showVerboseInformation, v)
}

func (l *dlUDFLibrary) RedirectOutput(path string) error {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	C.udf_call_redirect_output(l.redirectOutput, cPath)
	return nil
}

func (l *dlUDFLibrary) Close() error {
	if l.handle == nil {
		return nil
	}
	if rc := C.udf_dlclose(l.handle); rc != 0 {
		return fmt.Errorf("opticalengine: dlclose failed: rc=%d", int(rc))
	}
	l.handle = nil
	return nil
}
