package audiomixer

import (
	"fmt"
	"net"
	"strconv"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"
)

// paBackend lists PulseAudio sink inputs, a corked sink input counts as inactive
type paBackend struct {
	logger        *zap.SugaredLogger
	sessionLogger *zap.SugaredLogger

	client *proto.Client
	conn   net.Conn
}

type paSession struct {
	logger *zap.SugaredLogger
	client *proto.Client

	sinkInputIndex    uint32
	sinkInputChannels byte

	pid   ProcessID
	state ActivityState
}

const processIDProperty = "application.process.id"

func newAudioBackend(logger *zap.SugaredLogger) (AudioBackend, error) {
	client, conn, err := proto.Connect("")
	if err != nil {
		logger.Warnw("Failed to establish PulseAudio connection", "error", err)
		return nil, fmt.Errorf("establish PulseAudio connection: %w", err)
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString("audiomixer"),
		},
	}
	reply := proto.SetClientNameReply{}

	if err := client.Request(&request, &reply); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set PulseAudio client name: %w", err)
	}

	b := &paBackend{
		logger:        logger.Named("audio_backend"),
		sessionLogger: logger.Named("sessions"),
		client:        client,
		conn:          conn,
	}

	b.logger.Debug("Created PA audio backend instance")

	return b, nil
}

func (b *paBackend) ListSessions() ([]AudioSession, error) {
	request := proto.GetSinkInputInfoList{}
	reply := proto.GetSinkInputInfoListReply{}

	if err := b.client.Request(&request, &reply); err != nil {
		b.logger.Warnw("Failed to get sink input list", "error", err)
		return nil, fmt.Errorf("get sink input list: %w", err)
	}

	sessions := make([]AudioSession, 0, len(reply))

	for _, info := range reply {
		property, ok := info.Properties[processIDProperty]
		if !ok {
			b.logger.Debugw("Sink input has no owning process, skipping", "sinkInputIndex", info.SinkInputIndex)
			continue
		}

		pid, err := strconv.Atoi(property.String())
		if err != nil {
			b.logger.Debugw("Sink input has a malformed process id, skipping",
				"sinkInputIndex", info.SinkInputIndex,
				"error", err)

			continue
		}

		state := Active
		if info.Corked {
			state = Inactive
		}

		sessions = append(sessions, &paSession{
			logger:            b.sessionLogger,
			client:            b.client,
			sinkInputIndex:    info.SinkInputIndex,
			sinkInputChannels: info.Channels,
			pid:               ProcessID(pid),
			state:             state,
		})
	}

	return sessions, nil
}

func (b *paBackend) Release() error {
	if err := b.conn.Close(); err != nil {
		b.logger.Warnw("Failed to close PulseAudio connection", "error", err)
		return fmt.Errorf("close PulseAudio connection: %w", err)
	}

	b.logger.Debug("Released PA audio backend instance")

	return nil
}

func (s *paSession) Key() string {
	return strconv.FormatUint(uint64(s.sinkInputIndex), 10)
}

func (s *paSession) ProcessID() ProcessID {
	return s.pid
}

func (s *paSession) State() ActivityState {
	return s.state
}

func (s *paSession) info() (*proto.GetSinkInputInfoReply, error) {
	request := proto.GetSinkInputInfo{
		SinkInputIndex: s.sinkInputIndex,
	}
	reply := proto.GetSinkInputInfoReply{}

	if err := s.client.Request(&request, &reply); err != nil {
		return nil, fmt.Errorf("get sink input info: %w", err)
	}

	return &reply, nil
}

func (s *paSession) GetVolume() (float32, error) {
	info, err := s.info()
	if err != nil {
		s.logger.Warnw("Failed to get session volume", "error", err, "pid", s.pid)
		return 0, fmt.Errorf("get session volume: %w", err)
	}

	return parseChannelVolumes(info.ChannelVolumes), nil
}

func (s *paSession) SetVolume(v float32) error {
	request := proto.SetSinkInputVolume{
		SinkInputIndex: s.sinkInputIndex,
		ChannelVolumes: createChannelVolumes(s.sinkInputChannels, v),
	}

	if err := s.client.Request(&request, nil); err != nil {
		s.logger.Warnw("Failed to set session volume", "error", err, "pid", s.pid)
		return fmt.Errorf("adjust session volume: %w", err)
	}

	s.logger.Debugw("Adjusting session volume", "pid", s.pid, "to", fmt.Sprintf("%.2f", v))

	return nil
}

func (s *paSession) GetMute() (bool, error) {
	info, err := s.info()
	if err != nil {
		s.logger.Warnw("Failed to get session mute state", "error", err, "pid", s.pid)
		return false, fmt.Errorf("get session mute state: %w", err)
	}

	return info.Muted, nil
}

func (s *paSession) SetMute(mute bool) error {
	request := proto.SetSinkInputMute{
		SinkInputIndex: s.sinkInputIndex,
		Mute:           mute,
	}

	if err := s.client.Request(&request, nil); err != nil {
		s.logger.Warnw("Failed to set session mute state", "error", err, "pid", s.pid)
		return fmt.Errorf("set session mute state: %w", err)
	}

	s.logger.Debugw("Setting session mute state", "pid", s.pid, "muted", mute)

	return nil
}

// sink inputs don't hold native resources on our side
func (s *paSession) Release() {}

func createChannelVolumes(channels byte, volume float32) []uint32 {
	volumes := make([]uint32, channels)

	for i := range volumes {
		volumes[i] = uint32(volume * float32(proto.VolumeNorm))
	}

	return volumes
}

func parseChannelVolumes(volumes []uint32) float32 {
	if len(volumes) == 0 {
		return 0
	}

	var level uint64

	for _, volume := range volumes {
		level += uint64(volume)
	}

	return float32(level/uint64(len(volumes))) / float32(proto.VolumeNorm)
}
