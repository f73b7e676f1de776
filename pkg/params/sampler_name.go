package params

import "strings"

// civitaiSamplers maps internal sampler identifiers to the display names
// model-sharing sites index. Samplers absent here have no site-side
// display name and keep the internal sampler_scheduler spelling.
var civitaiSamplers = map[string]string{
	"euler":              "Euler",
	"euler_ancestral":    "Euler a",
	"euler_cfg_pp":       "Euler",
	"heun":               "Heun",
	"heunpp2":            "Heun",
	"dpm_2":              "DPM2",
	"dpm_2_ancestral":    "DPM2 a",
	"dpm_fast":           "DPM fast",
	"dpm_adaptive":       "DPM adaptive",
	"dpmpp_2s_ancestral": "DPM++ 2S a",
	"dpmpp_sde":          "DPM++ SDE",
	"dpmpp_sde_gpu":      "DPM++ SDE",
	"dpmpp_2m":           "DPM++ 2M",
	"dpmpp_2m_sde":       "DPM++ 2M SDE",
	"dpmpp_2m_sde_gpu":   "DPM++ 2M SDE",
	"dpmpp_3m_sde":       "DPM++ 3M SDE",
	"dpmpp_3m_sde_gpu":   "DPM++ 3M SDE",
	"ddim":               "DDIM",
	"ddpm":               "DDPM",
	"plms":               "PLMS",
	"lcm":                "LCM",
	"lms":                "LMS",
	"uni_pc":             "UniPC",
	"uni_pc_bh2":         "UniPC",
	"restart":            "Restart",
}

// SamplerDisplayName merges a sampler identifier and scheduler into one
// display value.
//
// Default spelling keeps the internal identifiers: sampler_scheduler,
// with a plain "normal" scheduler (or none) collapsing to the sampler
// alone. Civitai spelling looks the sampler up in the display-name map
// and appends " Karras" for the karras scheduler, which is the only
// scheduler those display names encode; any other scheduler is dropped.
// Samplers without a display name fall back to the default spelling even
// in Civitai mode, so novel samplers stay recognizable.
func SamplerDisplayName(sampler, scheduler string, civitai bool) string {
	sampler = strings.TrimSpace(sampler)
	scheduler = strings.TrimSpace(scheduler)
	if sampler == "" {
		return ""
	}

	if civitai {
		if display, ok := civitaiSamplers[sampler]; ok {
			if scheduler == "karras" {
				return display + " Karras"
			}
			return display
		}
	}

	if scheduler == "" || scheduler == "normal" {
		return sampler
	}
	return sampler + "_" + scheduler
}
