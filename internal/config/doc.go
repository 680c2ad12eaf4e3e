// Package config loads and merges the Parley configuration.
//
// Sources are merged in priority order, later winning:
//
//  1. Global config (~/.config/parley/parley.json or parley.jsonc)
//  2. PARLEY_CONFIG file override
//  3. PARLEY_CONFIG_CONTENT inline JSON
//  4. Environment variables (PARLEY_MASTER_SECRET, PARLEY_DATA_DIR,
//     PARLEY_PORT, PARLEY_HOSTNAME, PARLEY_LOG_LEVEL)
//
// Files may be JSONC (comments stripped via tidwall/jsonc) and may embed
// {env:VAR} placeholders, interpolated before parsing. A Watcher can
// monitor the active config file and deliver reloaded configurations on
// change.
package config
