package view

import (
	"regexp"
	"strings"
)

// DeviceInfo is what can be read off a raw User-Agent string.
type DeviceInfo struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	DeviceType     string
	IsBot          bool
}

const deviceUnknown = "Unknown"

var (
	reMobile = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	reTablet = regexp.MustCompile(`(?i)iPad|Android`)
	reBot    = regexp.MustCompile(`(?i)bot|crawler|spider|crawling`)

	reChrome  = regexp.MustCompile(`Chrome/(\d+)`)
	reFirefox = regexp.MustCompile(`Firefox/(\d+)`)
	reSafari  = regexp.MustCompile(`Version/(\d+)`)
	reEdge    = regexp.MustCompile(`Edg/(\d+)`)
	reOpera   = regexp.MustCompile(`OPR/(\d+)`)

	reMacVersion     = regexp.MustCompile(`Mac OS X (\d+[._]\d+)`)
	reAndroidVersion = regexp.MustCompile(`Android (\d+\.?\d*)`)
	reIOSVersion     = regexp.MustCompile(`OS (\d+[._]\d+)`)
)

// DetectDevice classifies a User-Agent into browser, OS and device type.
// Everything unparseable stays "Unknown" - detection is advisory metadata,
// not a gate.
func DetectDevice(ua string) DeviceInfo {
	info := DeviceInfo{
		Browser:        deviceUnknown,
		BrowserVersion: deviceUnknown,
		OS:             deviceUnknown,
		OSVersion:      deviceUnknown,
		DeviceType:     "Desktop",
		IsBot:          reBot.MatchString(ua),
	}

	isMobile := reMobile.MatchString(ua)
	isTablet := reTablet.MatchString(ua) && !strings.Contains(ua, "Mobile")
	if isTablet {
		info.DeviceType = "Tablet"
	} else if isMobile {
		info.DeviceType = "Mobile"
	}

	switch {
	case strings.Contains(ua, "Edg"):
		info.Browser = "Edge"
		info.BrowserVersion = firstGroup(reEdge, ua)
	case strings.Contains(ua, "OPR"):
		info.Browser = "Opera"
		info.BrowserVersion = firstGroup(reOpera, ua)
	case strings.Contains(ua, "Chrome"):
		info.Browser = "Chrome"
		info.BrowserVersion = firstGroup(reChrome, ua)
	case strings.Contains(ua, "Firefox"):
		info.Browser = "Firefox"
		info.BrowserVersion = firstGroup(reFirefox, ua)
	case strings.Contains(ua, "Safari"):
		info.Browser = "Safari"
		info.BrowserVersion = firstGroup(reSafari, ua)
	}

	switch {
	case strings.Contains(ua, "Windows"):
		info.OS = "Windows"
		switch {
		case strings.Contains(ua, "Windows NT 10.0"):
			info.OSVersion = "10"
		case strings.Contains(ua, "Windows NT 6.3"):
			info.OSVersion = "8.1"
		case strings.Contains(ua, "Windows NT 6.2"):
			info.OSVersion = "8"
		case strings.Contains(ua, "Windows NT 6.1"):
			info.OSVersion = "7"
		}
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iOS"):
		info.OS = "iOS"
		info.OSVersion = strings.ReplaceAll(firstGroup(reIOSVersion, ua), "_", ".")
	case strings.Contains(ua, "Mac OS X"):
		info.OS = "macOS"
		info.OSVersion = strings.ReplaceAll(firstGroup(reMacVersion, ua), "_", ".")
	case strings.Contains(ua, "Android"):
		info.OS = "Android"
		info.OSVersion = firstGroup(reAndroidVersion, ua)
	case strings.Contains(ua, "Linux"):
		info.OS = "Linux"
	}

	return info
}

func firstGroup(re *regexp.Regexp, ua string) string {
	if m := re.FindStringSubmatch(ua); len(m) > 1 {
		return m[1]
	}
	return deviceUnknown
}
