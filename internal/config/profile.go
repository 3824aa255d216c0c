package config

// Profile holds scan settings for a single ROM.
// This allows tuning scan behavior per game without repeating CLI flags,
// since different games pack their sprite banks very differently.
type Profile struct {
	// Codec overrides the decompressor binary for this ROM.
	Codec string `yaml:"codec,omitempty"`

	// CodecArgs are extra arguments passed to every worker process.
	CodecArgs []string `yaml:"codecArgs,omitempty"`

	// Stride overrides the candidate offset step for this ROM.
	// If zero, the global stride is used.
	Stride int `yaml:"stride,omitempty"`

	// Workers overrides the decompressor process count for this ROM.
	// If zero, the global worker count is used.
	Workers int `yaml:"workers,omitempty"`

	// QualityThreshold overrides the candidate acceptance threshold.
	// If zero, the global threshold is used.
	QualityThreshold float64 `yaml:"qualityThreshold,omitempty"`

	// OAM is the path to a 544-byte OAM snapshot for palette hinting.
	OAM string `yaml:"oam,omitempty"`

	// CGRAM is the path to a 512-byte CGRAM snapshot for palette hinting.
	CGRAM string `yaml:"cgram,omitempty"`

	// VRAM is the path to a 65536-byte VRAM snapshot captured alongside
	// OAM and CGRAM.
	VRAM string `yaml:"vram,omitempty"`
}

// File represents the structure of the .spritescan configuration file.
type File struct {
	// ROMs maps ROM file names to their scan profiles.
	// Keys are base names (e.g., "kirby.sfc"), matched against the
	// base name of the ROM passed on the command line.
	ROMs map[string]Profile `yaml:"roms,omitempty"`

	// Defaults contains the profile applied to all ROMs unless
	// overridden in a ROM-specific profile.
	Defaults Profile `yaml:"defaults,omitempty"`
}

// GetProfile returns the scan profile for a specific ROM name.
// It merges the ROM-specific profile with defaults.
func (cf *File) GetProfile(romName string) Profile {
	// Start with defaults
	result := cf.Defaults

	// Override with ROM-specific profile if present
	if profile, ok := cf.ROMs[romName]; ok {
		if profile.Codec != "" {
			result.Codec = profile.Codec
		}
		if len(profile.CodecArgs) > 0 {
			result.CodecArgs = profile.CodecArgs
		}
		if profile.Stride != 0 {
			result.Stride = profile.Stride
		}
		if profile.Workers != 0 {
			result.Workers = profile.Workers
		}
		if profile.QualityThreshold != 0 {
			result.QualityThreshold = profile.QualityThreshold
		}
		if profile.OAM != "" {
			result.OAM = profile.OAM
		}
		if profile.CGRAM != "" {
			result.CGRAM = profile.CGRAM
		}
		if profile.VRAM != "" {
			result.VRAM = profile.VRAM
		}
	}

	return result
}

// Apply overlays the profile onto a Config. Zero-valued profile fields
// leave the corresponding Config field untouched.
func (p Profile) Apply(c *Config) {
	if p.Codec != "" {
		c.CodecTool = p.Codec
	}
	if len(p.CodecArgs) > 0 {
		c.CodecArgs = p.CodecArgs
	}
	if p.Stride != 0 {
		c.Stride = p.Stride
	}
	if p.Workers != 0 {
		c.Workers = p.Workers
	}
	if p.QualityThreshold != 0 {
		c.QualityThreshold = p.QualityThreshold
	}
	if p.OAM != "" {
		c.OAMPath = p.OAM
	}
	if p.CGRAM != "" {
		c.CGRAMPath = p.CGRAM
	}
	if p.VRAM != "" {
		c.VRAMPath = p.VRAM
	}
}
