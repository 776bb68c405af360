package server

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>VoiceCapture</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@2/css/pico.min.css">
</head>
<body>
    <main class="container">
        <h1>VoiceCapture</h1>
        <p><span data-role="recording-duration" id="recording-duration">00:00</span></p>
        <div role="group">
            <button id="start">Start</button>
            <button id="stop" class="secondary">Stop</button>
            <button id="cancel" class="contrast">Cancel</button>
        </div>
        <p id="message"></p>
        <audio id="player" controls hidden></audio>
    </main>
    <script>
    const display = document.getElementById('recording-duration');
    const message = document.getElementById('message');
    const player = document.getElementById('player');

    function connect() {
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws/duration');
        ws.onopen = () => ws.send(JSON.stringify({id: display.id, attrs: {'data-role': display.dataset.role}, text: display.textContent}));
        ws.onmessage = (ev) => { display.textContent = JSON.parse(ev.data).duration; };
        ws.onclose = () => setTimeout(connect, 1000);
    }

    async function post(path) {
        const res = await fetch('/api/recorder/' + path, {method: 'POST'});
        return res.json();
    }

    async function lastError() {
        const res = await fetch('/api/recorder/last-error');
        if (res.status === 200) {
            message.textContent = (await res.json()).error;
        }
    }

    document.getElementById('start').onclick = async () => {
        message.textContent = '';
        display.textContent = '00:00';
        const res = await post('start');
        if (!res.success) { await lastError(); }
    };
    document.getElementById('stop').onclick = async () => {
        const res = await post('stop');
        if (res.audioData) {
            player.src = 'data:' + res.mimeType + ';base64,' + res.audioData;
            player.hidden = false;
        } else if (res.error) {
            message.textContent = res.error;
        }
    };
    document.getElementById('cancel').onclick = async () => {
        await post('cancel');
        display.textContent = '00:00';
    };
    connect();
    </script>
</body>
</html>`
