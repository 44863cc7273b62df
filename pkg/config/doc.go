/*
Package config loads the tentacle supervisor's YAML configuration
file using gopkg.in/yaml.v3, the same library the teacher uses for its
own resource manifests (cmd/warren's apply command).

Load reads and validates the file in one pass; a missing or invalid
required key returns a ConfigError, which is fatal at startup.
*/
package config
