package pipeline

// User-facing failure reasons.
const (
	MsgNoTranscript     = "语音识别无结果，请重试"
	MsgNoReply          = "大模型无回复"
	MsgSynthesisFailed  = "TTS 合成失败"
	MsgOnlineKeyMissing = "线上模式请配置 qwen api key"
)

// Mock replies.
const (
	MockText  = "（Mock）你好"
	MockReply = "（Mock）你好，我是语音助手。"
	MockFile  = "mock_reply.wav"
)

// Stage names used in metrics and failure results.
const (
	StageMock       = "mock"
	StageConfig     = "config"
	StageTranscribe = "transcribe"
	StageAugment    = "augment"
	StageGenerate   = "generate"
	StageIntent     = "intent"
	StageSynthesize = "synthesize"
	StageAudit      = "audit"
)

// Result is the terminal state of one voice run: either responded or failed.
type Result struct {
	Text      string
	Reply     string
	AudioFile string
	RAGUsed   bool

	// Reason is set only for failed runs.
	Reason string
	// Stage is the stage that decided the outcome.
	Stage string
}

// Failed reports whether the run ended in Failed(reason).
func (r Result) Failed() bool { return r.Reason != "" }

func failed(stage, reason string) Result { return Result{Stage: stage, Reason: reason} }

// TextResult is the outcome of the text flows. AudioFile is empty when synthesis failed.
type TextResult struct {
	Question  string
	Text      string
	AudioFile string
}
