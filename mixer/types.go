// SPDX-License-Identifier: EPL-2.0

package mixer

// SourceID indexes the source pool.
type SourceID int

// InvalidSourceID is returned when no slot is available.
const InvalidSourceID SourceID = -1

// BusID names an audio bus.
type BusID uint32

// BusSendType selects which buffer of a source feeds a bus.
type BusSendType int

const (
	// BusSendPreEffect reads the source before its effect chain.
	BusSendPreEffect BusSendType = iota
	// BusSendPostEffect reads the source after effects and filters, before
	// distance attenuation.
	BusSendPostEffect

	numBusSendTypes
)

func (t BusSendType) String() string {
	switch t {
	case BusSendPreEffect:
		return "pre-effect"
	case BusSendPostEffect:
		return "post-effect"
	}
	return "unknown"
}

// SubmixSendStage selects which buffer of a source a submix receives.
type SubmixSendStage int

const (
	// SendPostDistanceAttenuation is the fully processed signal.
	SendPostDistanceAttenuation SubmixSendStage = iota
	// SendPreDistanceAttenuation skips distance attenuation and the plugins
	// after it. Reverb sends use it to get the dry signal.
	SendPreDistanceAttenuation
)

// SpatializationParams place a source relative to the listener. Azimuth is
// in degrees clockwise from straight ahead.
type SpatializationParams struct {
	Azimuth   float32
	Elevation float32
	Distance  float32
	// NormalizedOmniRadius in [0, 1] blends the pan toward all speakers.
	NormalizedOmniRadius float32
	// StereoSpread in degrees between the two channels of a stereo source.
	StereoSpread float32
}

// SubmixSend routes a source into a submix.
type SubmixSend struct {
	Submix SubmixTarget
	Level  float32
	Stage  SubmixSendStage
}

// BusSend routes a source into an audio bus. A missing bus is created as an
// automatic bus with BusChannels channels, or the source's channel count
// when BusChannels is zero.
type BusSend struct {
	Bus         BusID
	Level       float32
	Type        BusSendType
	BusChannels int
}

// InitParams configure a source slot. A zero Pitch or DistanceAttenuation
// means 1 and zero filter frequencies leave the filters bypassed. Volume is
// used as given, so a source can start silent and fade in.
type InitParams struct {
	// Provider supplies decoded audio. Nil only for bus-backed voices.
	Provider         BufferProvider
	AudioComponentID uint64

	Volume              float32
	Pitch               float32
	DistanceAttenuation float32
	LPFFrequency        float32
	HPFFrequency        float32

	// Is3D pans by Spatialization.Azimuth instead of the static 2D map.
	Is3D           bool
	Spatialization SpatializationParams

	SubmixSends []SubmixSend
	BusSends    []BusSend

	// IsBus makes the source a voice that plays AudioBusID instead of a
	// provider.
	IsBus       bool
	AudioBusID  BusID
	BusChannels int
	// BusDurationFrames ends a bus voice after that many frames. Zero plays
	// until stopped.
	BusDurationFrames int64

	Effects        []SourceEffect
	EffectPresetID uint32

	UseSpatializationPlugin bool
	UseOcclusionPlugin      bool
	UseReverbPlugin         bool
	UseModulationPlugin     bool
}

// BufferProvider supplies decoded, interleaved audio to a source. NextBuffer
// hands out the next decoded chunk; looped reports that the chunk restarts the
// stream and final that no chunk follows it. OnBufferEnd is called once the
// previous chunk has been consumed, so the provider can reuse it. Close is
// called on the control goroutine, and only after IsAsyncTaskDone reports
// true.
type BufferProvider interface {
	NumChannels() int
	SampleRate() int
	NumBuffersQueued() int
	NextBuffer() (samples []float32, looped, final bool)
	OnBufferEnd()
	IsAsyncTaskDone() bool
	Close() error
}

// FrameCounter is implemented by providers that know their length, which
// feeds EffectParams.PlayFraction.
type FrameCounter interface {
	TotalFrames() int64
}

// EffectParams is the per-block state handed to each effect.
type EffectParams struct {
	SourceID       SourceID
	SampleRate     int
	NumChannels    int
	Volume         float32
	Pitch          float32
	AudioClock     float64
	PlayFraction   float32
	Spatialization SpatializationParams
}

// SourceEffect processes a source buffer in place. Init runs on the audio
// goroutine when the effect is installed.
type SourceEffect interface {
	Init(sampleRate, numChannels int)
	Enabled() bool
	Process(p *EffectParams, buf []float32)
}

// PluginInput is the buffer and source state handed to a plugin.
type PluginInput struct {
	SourceID       SourceID
	NumChannels    int
	Samples        []float32
	Spatialization SpatializationParams
}

// Plugin is the contract shared by the occlusion, reverb and spatialization
// plugins. ProcessAudio must fill out completely; out is sized by the
// mixer from the plugin's channel count.
type Plugin interface {
	OnInitSource(id SourceID, numChannels int)
	OnReleaseSource(id SourceID)
	ProcessAudio(in PluginInput, out []float32)
	OnAllSourcesProcessed()
}

// SpatializationPlugin renders sources to OutputChannels channels, usually
// binaural stereo. An external send renders straight to the device, so the
// mixer mixes nothing of such a source into submixes.
type SpatializationPlugin interface {
	Plugin
	OutputChannels() int
	IsExternalSend() bool
}

// ModulationPlugin scales source volume and pitch once per block.
type ModulationPlugin interface {
	OnInitSource(id SourceID, numChannels int)
	OnReleaseSource(id SourceID)
	Modulation(id SourceID) (volume, pitch float32)
	OnAllSourcesProcessed()
}

// Plugins are the optional processors a Manager hands sources to. With
// more than one worker, ProcessAudio and Modulation run concurrently for
// different sources.
type Plugins struct {
	Spatialization SpatializationPlugin
	Occlusion      Plugin
	Reverb         Plugin
	Modulation     ModulationPlugin
}

// SubmixTarget is the submix side of a send, called on the audio goroutine.
type SubmixTarget interface {
	NumChannels() int
	AddOrSetSourceVoice(id SourceID, level float32, stage SubmixSendStage)
	RemoveSourceVoice(id SourceID)
}

// Observer receives source events on the control goroutine during Update.
type Observer interface {
	OnSourceDone(id SourceID)
	OnSourceLooped(id SourceID)
	OnBufferUnderrun(id SourceID)
}

// Stats are counters since the Manager was created.
type Stats struct {
	BlocksRendered   int64
	ActiveSources    int
	StaleCommands    int64
	ForcedDrains     int64
	Underruns        int64
	DroppedEvents    int64
	PendingReleases  int
	CommandsExecuted int64
}
