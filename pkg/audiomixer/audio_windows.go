package audiomixer

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/diegosz/go-wca/pkg/wca"
	"github.com/go-ole/go-ole"
	"go.uber.org/zap"
)

// wcaBackend lists the per-process sessions of the default output device.
// It must be created, used and released on one locked OS thread, as COM is initialized there
type wcaBackend struct {
	logger        *zap.SugaredLogger
	sessionLogger *zap.SugaredLogger

	eventCtx *ole.GUID // needed for some session actions to successfully notify other audio consumers

	mmDeviceEnumerator *wca.IMMDeviceEnumerator
}

type wcaSession struct {
	logger *zap.SugaredLogger

	control *wca.IAudioSessionControl2
	volume  *wca.ISimpleAudioVolume

	eventCtx *ole.GUID

	key   string
	pid   ProcessID
	state ActivityState
}

const (
	randomGUID = "{9d3c5a11-52d4-4ab2-8fd6-2e3c1b7f0a64}"

	// GetProcessId fails with AUDCLNT_S_NO_CURRENT_PROCESS (0x889000D) for the system sounds
	// session and for some cross-process (UWP) sessions even though the pid is valid
	noCurrentProcessCode = "143196173"
)

func newAudioBackend(logger *zap.SugaredLogger) (AudioBackend, error) {
	b := &wcaBackend{
		logger:        logger.Named("audio_backend"),
		sessionLogger: logger.Named("sessions"),
		eventCtx:      ole.NewGUID(randomGUID),
	}

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		// E_FALSE means that the call was redundant.
		const eFalse = 1
		oleError := &ole.OleError{}

		if !errors.As(err, &oleError) || oleError.Code() != eFalse {
			b.logger.Warnw("Failed to call CoInitializeEx", "error", err)
			return nil, fmt.Errorf("call CoInitializeEx: %w", err)
		}

		b.logger.Warn("CoInitializeEx failed with E_FALSE due to redundant invocation")
	}

	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator,
		0,
		wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator,
		&b.mmDeviceEnumerator,
	); err != nil {
		b.logger.Warnw("Failed to call CoCreateInstance", "error", err)
		ole.CoUninitialize()

		return nil, fmt.Errorf("call CoCreateInstance: %w", err)
	}

	b.logger.Debug("Created WCA audio backend instance")

	return b, nil
}

func (b *wcaBackend) ListSessions() ([]AudioSession, error) {
	var mmOutDevice *wca.IMMDevice

	if err := b.mmDeviceEnumerator.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &mmOutDevice); err != nil {
		b.logger.Warnw("Failed to call GetDefaultAudioEndpoint (out)", "error", err)
		return nil, fmt.Errorf("call GetDefaultAudioEndpoint (out): %w", err)
	}
	defer mmOutDevice.Release()

	var audioSessionManager2 *wca.IAudioSessionManager2

	if err := mmOutDevice.Activate(
		wca.IID_IAudioSessionManager2,
		wca.CLSCTX_ALL,
		nil,
		&audioSessionManager2,
	); err != nil {
		b.logger.Warnw("Failed to activate endpoint as IAudioSessionManager2", "error", err)
		return nil, fmt.Errorf("activate endpoint: %w", err)
	}
	defer audioSessionManager2.Release()

	var sessionEnumerator *wca.IAudioSessionEnumerator

	if err := audioSessionManager2.GetSessionEnumerator(&sessionEnumerator); err != nil {
		b.logger.Warnw("Failed to get session enumerator", "error", err)
		return nil, fmt.Errorf("get session enumerator: %w", err)
	}
	defer sessionEnumerator.Release()

	var sessionCount int
	if err := sessionEnumerator.GetCount(&sessionCount); err != nil {
		b.logger.Warnw("Failed to get session count from session enumerator", "error", err)
		return nil, fmt.Errorf("get session count: %w", err)
	}

	sessions := make([]AudioSession, 0, sessionCount)

	for sessionIdx := 0; sessionIdx < sessionCount; sessionIdx++ {
		var audioSessionControl *wca.IAudioSessionControl
		if err := sessionEnumerator.GetSession(sessionIdx, &audioSessionControl); err != nil {
			b.logger.Warnw("Failed to get session from session enumerator",
				"error", err,
				"sessionIdx", sessionIdx)

			continue
		}

		session, err := b.processSession(audioSessionControl)
		if err != nil {
			b.logger.Debugw("Skipping session", "sessionIdx", sessionIdx, "error", err)
			continue
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (b *wcaBackend) processSession(audioSessionControl *wca.IAudioSessionControl) (*wcaSession, error) {
	// the enumerator's reference is handed over to us, we only keep the IAudioSessionControl2 one
	defer audioSessionControl.Release()

	dispatch, err := audioSessionControl.QueryInterface(wca.IID_IAudioSessionControl2)
	if err != nil {
		return nil, fmt.Errorf("query session's IAudioSessionControl2: %w", err)
	}

	audioSessionControl2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))

	var pid uint32
	if err := audioSessionControl2.GetProcessId(&pid); err != nil && !strings.Contains(err.Error(), noCurrentProcessCode) {
		audioSessionControl2.Release()
		return nil, fmt.Errorf("query session's pid: %w", err)
	}

	// the system sounds session doesn't belong to any window's process
	if pid == 0 {
		audioSessionControl2.Release()
		return nil, errors.New("session has no owning process")
	}

	var state uint32
	if err := audioSessionControl2.GetState(&state); err != nil {
		audioSessionControl2.Release()
		return nil, fmt.Errorf("query session's state: %w", err)
	}

	var instanceID string
	if err := audioSessionControl2.GetSessionInstanceIdentifier(&instanceID); err != nil {
		audioSessionControl2.Release()
		return nil, fmt.Errorf("query session's instance identifier: %w", err)
	}

	dispatch, err = audioSessionControl2.QueryInterface(wca.IID_ISimpleAudioVolume)
	if err != nil {
		audioSessionControl2.Release()
		return nil, fmt.Errorf("query session's ISimpleAudioVolume: %w", err)
	}

	activity := Inactive
	if state == uint32(wca.AudioSessionStateActive) {
		activity = Active
	}

	return &wcaSession{
		logger:   b.sessionLogger,
		control:  audioSessionControl2,
		volume:   (*wca.ISimpleAudioVolume)(unsafe.Pointer(dispatch)),
		eventCtx: b.eventCtx,
		key:      instanceID,
		pid:      ProcessID(pid),
		state:    activity,
	}, nil
}

func (b *wcaBackend) Release() error {
	if b.mmDeviceEnumerator != nil {
		b.mmDeviceEnumerator.Release()
		b.mmDeviceEnumerator = nil
	}

	ole.CoUninitialize()

	b.logger.Debug("Released WCA audio backend instance")
	return nil
}

func (s *wcaSession) Key() string {
	return s.key
}

func (s *wcaSession) ProcessID() ProcessID {
	return s.pid
}

func (s *wcaSession) State() ActivityState {
	return s.state
}

func (s *wcaSession) GetVolume() (float32, error) {
	var level float32

	if err := s.volume.GetMasterVolume(&level); err != nil {
		s.logger.Warnw("Failed to get session volume", "error", err, "pid", s.pid)
		return 0, fmt.Errorf("get session volume: %w", err)
	}

	return level, nil
}

func (s *wcaSession) SetVolume(v float32) error {
	if err := s.volume.SetMasterVolume(v, s.eventCtx); err != nil {
		s.logger.Warnw("Failed to set session volume", "error", err, "pid", s.pid)
		return fmt.Errorf("adjust session volume: %w", err)
	}

	s.logger.Debugw("Adjusting session volume", "pid", s.pid, "to", fmt.Sprintf("%.2f", v))

	return nil
}

func (s *wcaSession) GetMute() (bool, error) {
	var mute bool

	if err := s.volume.GetMute(&mute); err != nil {
		s.logger.Warnw("Failed to get session mute state", "error", err, "pid", s.pid)
		return false, fmt.Errorf("get session mute state: %w", err)
	}

	return mute, nil
}

func (s *wcaSession) SetMute(mute bool) error {
	if err := s.volume.SetMute(mute, s.eventCtx); err != nil {
		s.logger.Warnw("Failed to set session mute state", "error", err, "pid", s.pid)
		return fmt.Errorf("set session mute state: %w", err)
	}

	s.logger.Debugw("Setting session mute state", "pid", s.pid, "muted", mute)

	return nil
}

func (s *wcaSession) Release() {
	s.volume.Release()
	s.control.Release()
}
