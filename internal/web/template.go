package web

import (
	"html/template"
	"io"

	"github.com/sweeney/net-watchdog/internal/status"
	"github.com/sweeney/net-watchdog/internal/watchdog"
)

var pageFuncs = template.FuncMap{
	"stateMark": func(s watchdog.State) template.HTML {
		switch s {
		case watchdog.StateActive:
			return "&#10003;"
		case watchdog.StateInactive:
			return "&#10005;"
		default:
			return "?"
		}
	},
}

var infoTmpl = template.Must(template.New("info").Funcs(pageFuncs).Parse(infoHTML))

const infoHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Net Watchdog</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 35%; }
a.link { display: inline-block; margin: 2px 0; }
</style>
<script>
function invoke(uri) {
  var xhr = new XMLHttpRequest();
  xhr.open("GET", uri, true);
  xhr.onloadend = update;
  xhr.send(null);
}

function commit() {
  var q = "?address=" + encodeURIComponent(document.getElementById("ping_address").value) +
          "&period=" + encodeURIComponent(document.getElementById("ping_period").value);
  var xhr = new XMLHttpRequest();
  xhr.open("GET", "/commit" + q, true);
  xhr.onloadend = function() {
    document.getElementById("commit_result").textContent = xhr.status === 200 ? "saved" : xhr.responseText;
  };
  xhr.send(null);
}

function check() {
  var xhr = new XMLHttpRequest();
  xhr.open("GET", "/check?address=" + encodeURIComponent(document.getElementById("ping_address").value), true);
  xhr.onloadend = function() {
    document.getElementById("state").innerHTML = xhr.status === 200 ? "&#10003;" : "&#10005;";
  };
  xhr.send(null);
}

function update() {
  var xhr = new XMLHttpRequest();
  xhr.open("GET", "/status", true);
  xhr.onload = function() {
    if (xhr.status !== 200) return;
    var obj = JSON.parse(xhr.responseText);
    document.getElementById("ssid").textContent = obj.ssid;
    document.getElementById("rssi").textContent = obj.rssi;
    document.getElementById("ip").textContent = obj.ip;
    document.getElementById("mac").textContent = obj.mac;
    var addr = document.getElementById("ping_address");
    if (addr.value === "") addr.value = obj.ping_address;
    document.getElementById("ping_state").innerHTML = obj.ping_state == 0 ? "&#10003;" : (obj.ping_state == 2 ? "&#10005;" : "?");
    document.getElementById("reboot").textContent = obj.rebootTimer > 0 ? " - " + obj.rebootTimer : "";
    document.getElementById("ota").textContent = obj.ota ? " - On (" + Math.round(obj.otaTimer / 60) + "min)" : " - Off";
  };
  xhr.send(null);
}

setInterval(update, 3000);
setInterval(check, 10000);
</script>
</head>
<body>
<h1>Net Watchdog <span id="version">(v{{.Version}})</span></h1>

<h2>Network</h2>
<table>
<tr><th>SSID</th><td id="ssid">{{if .Network}}{{.Network.SSID}}{{end}}</td></tr>
<tr><th>RSSI</th><td id="rssi">{{if .Network}}{{.Network.RSSI}}{{end}}</td></tr>
<tr><th>IP</th><td id="ip">{{if .Network}}{{.Network.IP}}{{end}}</td></tr>
<tr><th>MAC</th><td id="mac">{{if .Network}}{{.Network.MAC}}{{end}}</td></tr>
</table>

<h2>Watchdog</h2>
<table>
<tr><th>Status</th><td id="ping_state">{{stateMark .PingState}}</td></tr>
<tr><th>Ping address</th><td><input id="ping_address" type="text" maxlength="{{.MaxAddress}}" value="{{.PingAddress}}"/>&nbsp;<span id="state"></span></td></tr>
<tr><th>Period (s)</th><td><input id="ping_period" type="number" min="{{.MinPeriod}}" value="{{.PingPeriod}}"/>&nbsp;<input type="button" onclick="commit()" value="Save"/>&nbsp;<span id="commit_result"></span></td></tr>
</table>

<p>
<a class="link" href="" onclick="invoke('/reboot');return false;">Reboot Device</a><span id="reboot">{{if .Reboot}} - {{.RebootTimer}}{{end}}</span><br/>
<a class="link" href="" onclick="invoke('/reset');return false;">Reset Device</a><br/>
<a class="link" href="" onclick="invoke('/ota?action=toggle');return false;">Toggle OTA</a><span id="ota">{{if .OTA}} - On{{else}} - Off{{end}}</span><br/>
<a class="link" href="" onclick="invoke('/rearm');return false;">Rearm</a><br/>
<a class="link" href="" onclick="invoke('/switch');return false;">Switch Relay</a>
</p>

<form method="post" enctype="multipart/form-data" action="/update">
Upgrade firmware: <input type="file" name="{{.UploadField}}"/> <input type="submit" value="Upgrade"/>
</form>

<p><a href="/help">API Usage</a> | <a href="/status">JSON</a></p>
</body>
</html>
`

var helpTmpl = template.Must(template.New("help").Parse(helpHTML))

const helpHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Net Watchdog - API</title>
</head>
<body>
<h1>Net Watchdog <span id="version">(v{{.}})</span> - API Usage</h1>
<ul>
<li>Reboot: /reboot</li>
<li>Reset provisioning: /reset</li>
<li>OTA on/off/toggle: /ota?action=[on|off|toggle]</li>
<li>Firmware upload: POST /update (multipart)</li>
<li>Commit: /commit?address=&lt;address&gt;&amp;period=&lt;period&gt;</li>
<li>Check: /check?[address=&lt;address&gt;]</li>
<li>Rearm: /rearm</li>
<li>Switch relay: /switch</li>
<li>Status (JSON): /status</li>
</ul>
</body>
</html>
`

var updateTmpl = template.Must(template.New("update").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Net Watchdog - OTA</title>
{{if .OK}}<meta http-equiv="refresh" content="{{.Refresh}}; url=/">{{end}}
</head>
<body>Update {{if .OK}}succeeded{{else}}failed{{end}}</body>
</html>
`))

func renderInfo(w io.Writer, snap status.Snapshot, uploadField string) {
	data := struct {
		status.Snapshot
		UploadField string
		MaxAddress  int
		MinPeriod   int
	}{
		Snapshot:    snap,
		UploadField: uploadField,
		MaxAddress:  watchdog.MaxAddressLen,
		MinPeriod:   watchdog.MinPeriodSeconds,
	}
	infoTmpl.Execute(w, data)
}

func renderHelp(w io.Writer, version string) {
	helpTmpl.Execute(w, version)
}

func renderUpdate(w io.Writer, ok bool, refresh int) {
	updateTmpl.Execute(w, struct {
		OK      bool
		Refresh int
	}{ok, refresh})
}
