package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Prober reads stream information with ffprobe.
type Prober struct {
	path string
}

func NewProber(path string) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{path: path}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Codecs lists the first video and audio codec of input. Missing streams report "unknown".
type Codecs struct {
	Video string
	Audio string
}

func (p *Prober) run(ctx context.Context, input string) (*probeOutput, error) {
	cmd := exec.CommandContext(ctx, p.path, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", input)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", input, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*probeOutput, error) {
	var res probeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}
	return &res, nil
}

// Duration returns the container duration of input (a path or URL) in seconds.
func (p *Prober) Duration(ctx context.Context, input string) (float64, error) {
	res, err := p.run(ctx, input)
	if err != nil {
		return 0, err
	}
	return res.duration()
}

// Codecs returns the codecs of input.
func (p *Prober) Codecs(ctx context.Context, input string) (Codecs, error) {
	res, err := p.run(ctx, input)
	if err != nil {
		return Codecs{Video: "unknown", Audio: "unknown"}, err
	}
	return res.codecs(), nil
}

func (o *probeOutput) duration() (float64, error) {
	candidates := []string{o.Format.Duration}
	for _, s := range o.Streams {
		candidates = append(candidates, s.Duration)
	}
	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(c, 64)
		if err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, fmt.Errorf("no duration reported")
}

func (o *probeOutput) codecs() Codecs {
	c := Codecs{Video: "unknown", Audio: "unknown"}
	for _, s := range o.Streams {
		switch s.CodecType {
		case "video":
			if c.Video == "unknown" {
				c.Video = s.CodecName
			}
		case "audio":
			if c.Audio == "unknown" {
				c.Audio = s.CodecName
			}
		}
	}
	return c
}
