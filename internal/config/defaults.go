package config

// Voice failure policies.
const (
	// VoicePolicyDegrade shows the text answer without audio when speech fails.
	VoicePolicyDegrade = "degrade"
	// VoicePolicySurface turns a speech failure into a visible error.
	VoicePolicySurface = "surface"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 180
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/kotae/vectorstore/db_faiss"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}

	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 2
	}

	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".pdf"}
	}
	if cfg.Corpus.TimeoutSecs == 0 {
		cfg.Corpus.TimeoutSecs = 30
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "replicate"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "meta/meta-llama-3-70b-instruct"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "REPLICATE_API_TOKEN"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.5
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 1
	}
	if cfg.LLM.MaxNewTokens == 0 {
		cfg.LLM.MaxNewTokens = 500
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.LLM.PollIntervalMS == 0 {
		cfg.LLM.PollIntervalMS = 500
	}

	if cfg.Voice.BaseURL == "" {
		cfg.Voice.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Voice.Voice == "" {
		cfg.Voice.Voice = "Jack"
	}
	if cfg.Voice.Model == "" {
		cfg.Voice.Model = "eleven_multilingual_v2"
	}
	if cfg.Voice.OutputFormat == "" {
		cfg.Voice.OutputFormat = "mp3_44100_128"
	}
	if cfg.Voice.APIKeyEnv == "" {
		cfg.Voice.APIKeyEnv = "ELEVEN_LABS_API_KEY"
	}
	if cfg.Voice.TimeoutSecs == 0 {
		cfg.Voice.TimeoutSecs = 60
	}
	if cfg.Voice.FailurePolicy == "" {
		cfg.Voice.FailurePolicy = VoicePolicyDegrade
	}

	applyPersonaDefaults(&cfg.Persona)

	if cfg.Auth.PasswordEnv == "" {
		cfg.Auth.PasswordEnv = "KOTAE_PASSWORD"
	}
}

func applyPersonaDefaults(p *PersonaConfig) {
	if p.Name == "" {
		p.Name = "Jack Hoang"
	}
	if p.Subject == "" {
		p.Subject = p.Name + " and his work"
	}
	if p.PageTitle == "" {
		p.PageTitle = p.Name + " - Software Engineer"
	}
	if p.Title == "" {
		p.Title = p.Name + " AI Assistant"
	}
	if p.Subtitle == "" {
		p.Subtitle = "Software Engineer | Full Stack Developer"
	}
	if p.AskLabel == "" {
		p.AskLabel = "Ask anything about " + p.Name + ":"
	}
	if p.Placeholder == "" {
		p.Placeholder = "e.g. How did you get into software development?"
	}
	if p.Footer == "" {
		p.Footer = "Powered by " + p.Name
	}
}
