package api

// EngineVersion identifies the verification engine build. It is reported in
// the X-Engine-Version header and stored alongside verdicts so a future
// engine change can be traced back through recorded scores.
const EngineVersion = "1.0.0"
