package ir

// EngineVersion is the gridcalc engine version.
const EngineVersion = "0.1.0"
