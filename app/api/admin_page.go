package api

// adminHTML is the management page. It is intentionally thin: all data
// comes from the getData action, all mutations go through AdminAction.
const adminHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>RSSJumper Admin</title>
  <style>
    body { font-family: -apple-system, sans-serif; margin: 2em; background: #f8f9fa; color: #333; }
    h1 { margin-bottom: 0.2em; }
    .stats { display: flex; gap: 1em; margin: 1em 0; }
    .stat { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 0.8em 1.2em; }
    .stat b { display: block; font-size: 1.4em; }
    table { width: 100%; border-collapse: collapse; background: #fff; margin-bottom: 2em; }
    th, td { text-align: left; padding: 0.5em 0.8em; border-bottom: 1px solid #eee; font-size: 0.9em; }
    th { background: #f1f3f5; }
    td.url { word-break: break-all; max-width: 28em; }
    button { padding: 0.3em 0.8em; border: 0; border-radius: 4px; cursor: pointer; color: #fff; }
    .red { background: #dc3545; } .green { background: #28a745; } .orange { background: #fd7e14; } .blue { background: #007bff; }
  </style>
</head>
<body>
  <h1>RSSJumper Admin</h1>
  <div class="stats">
    <div class="stat"><b id="totalAccess">-</b>total accesses</div>
    <div class="stat"><b id="totalBlacklisted">-</b>blacklisted</div>
    <div class="stat"><b id="totalCached">-</b>cached</div>
    <div class="stat"><b id="bannedIPs">-</b>banned IPs</div>
  </div>
  <button class="blue" onclick="refreshData()">Refresh</button>
  <button class="red" onclick="act('resetAccessCount')">Reset access log</button>

  <h2>Access history</h2>
  <table>
    <thead><tr><th>URL</th><th>Count</th><th>Today</th><th>First</th><th>Last</th><th>State</th><th></th></tr></thead>
    <tbody id="logs"></tbody>
  </table>

  <h2>Cache files</h2>
  <table>
    <thead><tr><th>URL</th><th>Title</th><th>Size</th><th>Cached</th><th>Age</th><th>Status</th><th></th></tr></thead>
    <tbody id="cacheFiles"></tbody>
  </table>

  <script>
    var password = new URLSearchParams(location.search).get('password');

    function post(body) {
      return fetch('/?password=' + encodeURIComponent(password), {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify(body)
      }).then(function (r) { return r.json(); });
    }

    function act(action, encodedUrl) {
      var url = encodedUrl ? decodeURIComponent(encodedUrl) : undefined;
      post({ action: action, url: url }).then(function (data) {
        if (data.message) alert(data.message);
        refreshData();
      });
    }

    function esc(s) {
      var d = document.createElement('div');
      d.textContent = s == null ? '' : s;
      return d.innerHTML;
    }

    function refreshData() {
      post({ action: 'getData' }).then(function (data) {
        ['totalAccess', 'totalBlacklisted', 'totalCached', 'bannedIPs'].forEach(function (k) {
          document.getElementById(k).textContent = data.stats[k];
        });

        document.getElementById('logs').innerHTML = data.logs.map(function (log) {
          var toggle = log.isBlacklisted
            ? '<button class="green" onclick="act(\'removeBlacklist\', \'' + encodeURIComponent(log.url) + '\')">enable</button>'
            : '<button class="red" onclick="act(\'addBlacklist\', \'' + encodeURIComponent(log.url) + '\')">disable</button>';
          return '<tr><td class="url">' + esc(log.url) + '</td><td>' + log.count +
            '</td><td>' + log.todayCount + '</td><td>' + esc(log.firstAccess) +
            '</td><td>' + esc(log.lastAccess) + '</td><td>' +
            (log.isBlacklisted ? 'disabled' : 'active') + '</td><td>' + toggle + '</td></tr>';
        }).join('');

        document.getElementById('cacheFiles').innerHTML = data.cacheFiles.map(function (f) {
          return '<tr><td class="url">' + esc(f.url) + '</td><td>' + esc(f.title) +
            '</td><td>' + f.size + '</td><td>' + esc(f.cachedAt) + '</td><td>' + esc(f.age) +
            '</td><td>' + esc(f.status) + '</td><td>' +
            '<button class="orange" onclick="act(\'refreshCache\', \'' + encodeURIComponent(f.url) + '\')">refresh</button> ' +
            '<button class="red" onclick="act(\'clearCache\', \'' + encodeURIComponent(f.url) + '\')">clear</button></td></tr>';
        }).join('');
      });
    }

    window.addEventListener('load', refreshData);
  </script>
</body>
</html>`
