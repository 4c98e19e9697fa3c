package relay

// DefaultSystemPrompt is the fixed instruction sent ahead of every conversation.
const DefaultSystemPrompt = "Welcome to LeanMind, an AI coach for fitness, focus, and self-improvement. Keep your answers concise and actionable."
